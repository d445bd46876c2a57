package crypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	digest := Sha256([]byte("hello simplechain"))
	sig := Sign(priv, digest)

	if !Verify(pub, digest, sig) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	_, otherPub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	digest := Sha256([]byte("hello"))
	sig := Sign(priv, digest)

	if Verify(otherPub, digest, sig) {
		t.Fatal("expected signature to fail verification under the wrong public key")
	}
}

func TestPrivateKeyFromScalarRoundTrip(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	restored := PrivateKeyFromScalar(priv.Scalar())
	if restored.PubKey().Bytes() == nil {
		t.Fatal("restored key produced no public key")
	}

	digest := Sha256([]byte("round trip"))
	sig := Sign(restored, digest)
	if !Verify(pub, digest, sig) {
		t.Fatal("signature from scalar-restored key should verify under the original public key")
	}
}

func TestParsePublicKeyRejectsWrongLength(t *testing.T) {
	if _, err := ParsePublicKey([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for undersized public key")
	}
}
