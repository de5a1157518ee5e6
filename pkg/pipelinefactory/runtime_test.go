package pipelinefactory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime_Reload(t *testing.T) {
	rt, err := NewRuntime(parse(t, gatewayYAML("https://east.example.com")), Options{})
	require.NoError(t, err)

	set := rt.Pipelines()
	before := set.Router()
	require.Len(t, before.Pipelines(), 2)
	assert.Len(t, rt.EndpointHealth(), 2)

	t.Run("successful rebuild is swapped in", func(t *testing.T) {
		doc := strings.Replace(gatewayYAML("https://east.example.com"), "host: open.example.com", "host: public.example.com", 1)
		require.NoError(t, rt.Reload(parse(t, doc)))

		assert.NotSame(t, before, set.Router())
		_, err := set.Router().Route("public.example.com")
		assert.NoError(t, err)
		_, err = set.Router().Route("open.example.com")
		assert.Error(t, err)
	})

	t.Run("failed rebuild keeps the active pipelines", func(t *testing.T) {
		active := set.Router()
		activeResult := rt.Current()

		doc := strings.Replace(gatewayYAML("https://east.example.com"), "api_key: sk-direct", "api_key: \"\"", 1)
		err := rt.Reload(parse(t, doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "endpoints[1]")

		assert.Same(t, active, set.Router())
		assert.Same(t, activeResult, rt.Current())
	})
}

func TestNewRuntime_InvalidConfig(t *testing.T) {
	doc := strings.Replace(gatewayYAML("https://east.example.com"), "type: BulkHead", "type: Semaphore", 1)
	_, err := NewRuntime(parse(t, doc), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown generic step type "Semaphore"`)
}
