package auth

import (
	"errors"
	"testing"
)

func TestNewAPIKeyValidator(t *testing.T) {
	tests := []struct {
		name    string
		clients []Client
		wantErr bool
	}{
		{name: "single key", clients: []Client{{Name: "a", Keys: []string{"k1"}}}},
		{name: "rotation pair", clients: []Client{{Name: "a", Keys: []string{"k1", "k2"}}}},
		{name: "no clients", clients: nil, wantErr: true},
		{name: "no keys", clients: []Client{{Name: "a"}}, wantErr: true},
		{name: "three keys", clients: []Client{{Name: "a", Keys: []string{"1", "2", "3"}}}, wantErr: true},
		{name: "empty key", clients: []Client{{Name: "a", Keys: []string{"k1", ""}}}, wantErr: true},
		{name: "unnamed client", clients: []Client{{Keys: []string{"k1"}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAPIKeyValidator(tt.clients)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAPIKeyValidator() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIKeyValidator_Validate(t *testing.T) {
	validator, err := NewAPIKeyValidator([]Client{
		{Name: "billing", Keys: []string{"billing-old", "billing-new"}},
		{Name: "search", Keys: []string{"search-1"}},
	})
	if err != nil {
		t.Fatalf("NewAPIKeyValidator() error = %v", err)
	}

	tests := []struct {
		name       string
		key        string
		wantClient string
		wantErr    bool
	}{
		{name: "first key", key: "billing-old", wantClient: "billing"},
		{name: "second key", key: "billing-new", wantClient: "billing"},
		{name: "other client", key: "search-1", wantClient: "search"},
		{name: "wrong key", key: "billing", wantErr: true},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := validator.Validate(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("Validate() error = %v, want ErrInvalidKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if client.Name != tt.wantClient {
				t.Errorf("Validate() client = %q, want %q", client.Name, tt.wantClient)
			}
		})
	}
}

func TestAPIKeyValidator_CopiesKeys(t *testing.T) {
	keys := []string{"k1"}
	validator, err := NewAPIKeyValidator([]Client{{Name: "a", Keys: keys}})
	if err != nil {
		t.Fatalf("NewAPIKeyValidator() error = %v", err)
	}
	keys[0] = "changed"

	if _, err := validator.Validate("k1"); err != nil {
		t.Errorf("Validate() after caller mutation error = %v", err)
	}
	if got := validator.Clients(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Clients() = %v", got)
	}
}
