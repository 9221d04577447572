package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const testSecret = "collector-auth-key-12345"

func TestSecretStringFormatting(t *testing.T) {
	s := SecretString(testSecret)

	for _, verb := range []string{"%s", "%v", "%+v"} {
		result := fmt.Sprintf(verb, s)
		if strings.Contains(result, testSecret) {
			t.Errorf("fmt.Sprintf(%q) leaked the raw secret: %s", verb, result)
		}
		if result != redactedPlaceholder {
			t.Errorf("fmt.Sprintf(%q) = %q, want %q", verb, result, redactedPlaceholder)
		}
	}
}

func TestSecretStringMarshalJSON(t *testing.T) {
	meta := map[string]any{
		"auth_key": SecretString(testSecret),
		"host":     "collectors.signifai.io",
	}

	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("json.Marshal returned error: %v", err)
	}
	if strings.Contains(string(data), testSecret) {
		t.Errorf("json.Marshal leaked the raw secret: %s", data)
	}
	if !strings.Contains(string(data), `"auth_key":"`+redactedPlaceholder+`"`) {
		t.Errorf("json.Marshal did not redact the secret: %s", data)
	}
}

func TestSecretStringUnmask(t *testing.T) {
	if got := SecretString(testSecret).Unmask(); got != testSecret {
		t.Errorf("Unmask() = %q, want %q", got, testSecret)
	}
}

func TestSecretStringIsEmpty(t *testing.T) {
	if !SecretString("").IsEmpty() {
		t.Error("empty SecretString should report IsEmpty")
	}
	if SecretString(testSecret).IsEmpty() {
		t.Error("non-empty SecretString should not report IsEmpty")
	}
	if SecretString("").String() != redactedPlaceholder {
		t.Error("empty secrets are redacted too")
	}
}
