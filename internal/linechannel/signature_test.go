package linechannel

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := "test_channel_secret"
	body := []byte(`{"events":[]}`)
	validSig := Sign(secret, body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{"valid signature", secret, body, validSig, true},
		{"wrong signature", secret, body, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", false},
		{"empty signature", secret, body, "", false},
		{"empty secret", "", body, validSig, false},
		{"tampered body", secret, []byte(`{"events":[{}]}`), validSig, false},
		{"signature for other secret", "other_secret", body, validSig, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySignature(tt.secret, tt.body, tt.signature)
			if got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignRoundTrip(t *testing.T) {
	// verify(B, sign(B,S), S) must hold for arbitrary bodies.
	bodies := [][]byte{
		[]byte(""),
		[]byte("{}"),
		[]byte(`{"events":[{"type":"message"}]}`),
		[]byte("non-json body \x00\x01\x02"),
	}
	for _, body := range bodies {
		if !VerifySignature("secret", body, Sign("secret", body)) {
			t.Errorf("round trip failed for body %q", body)
		}
	}
}
