package classify

// Dialect identifies the inbound API surface a request was written against.
type Dialect string

const (
	// DialectAzureOpenAI is the Azure OpenAI surface:
	// /openai/deployments/{deployment}/{operation}.
	DialectAzureOpenAI Dialect = "azure-openai"

	// DialectOpenAI is the direct OpenAI surface: /v1/{operation}.
	DialectOpenAI Dialect = "openai"
)

// CallType is the semantic category of an AI request.
type CallType int

const (
	// CallOther is any operation the gateway does not inspect.
	CallOther CallType = iota
	// CallChat is a chat completion.
	CallChat
	// CallCompletions is a legacy text completion.
	CallCompletions
	// CallEmbeddings is an embeddings request.
	CallEmbeddings
	// CallTranscription is an audio transcription or translation.
	CallTranscription
	// CallImage is an image generation request.
	CallImage
)

// String returns the lower-case call type name.
func (c CallType) String() string {
	switch c {
	case CallChat:
		return "chat"
	case CallCompletions:
		return "completions"
	case CallEmbeddings:
		return "embeddings"
	case CallTranscription:
		return "transcription"
	case CallImage:
		return "image"
	default:
		return "other"
	}
}

// bodyParsed reports whether requests of this type carry a JSON body the
// classifier reads. Everything else is forwarded byte-for-byte.
func (c CallType) bodyParsed() bool {
	return c == CallChat || c == CallCompletions || c == CallEmbeddings
}

// CallDetails describes one inbound request. It is produced once per request
// and never modified afterwards.
type CallDetails struct {
	// Dialect is the inbound API surface.
	Dialect Dialect

	// CallType is the semantic category of the call.
	CallType CallType

	// Operation is the path below the deployment (Azure) or version (OpenAI)
	// segment, e.g. "chat/completions" or "images/generations:submit".
	Operation string

	// Model is the requested model or deployment name. Empty when the
	// request does not name one.
	Model string

	// Prompt is the extracted prompt text. Only set when Parsed is true.
	Prompt string

	// Stream reports a parsed body with "stream": true.
	Stream bool

	// Parsed reports that Body was parsed as JSON.
	Parsed bool

	// Body is the complete buffered request body, replayed verbatim to
	// each dispatcher.
	Body []byte
}

// Addressed reports whether the call names a model, which is required to
// spread it across several endpoints.
func (d CallDetails) Addressed() bool {
	return d.Model != ""
}

// BodyParsed reports whether the call type carries an inspected JSON body.
func (d CallDetails) BodyParsed() bool {
	return d.CallType.bodyParsed()
}
