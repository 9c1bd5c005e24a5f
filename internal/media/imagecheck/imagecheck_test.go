package imagecheck_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"reelsmith/internal/media/imagecheck"
	"reelsmith/internal/testsupport"
)

func TestDecodeBase64HandlesDataURLs(t *testing.T) {
	raw := testsupport.PNGBytes(t, 4, 4)
	encoded := base64.StdEncoding.EncodeToString(raw)

	decoded, err := imagecheck.DecodeBase64("data:image/png;base64," + encoded)
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	if len(decoded) != len(raw) {
		t.Fatalf("expected %d bytes, got %d", len(raw), len(decoded))
	}

	withNewlines := encoded[:10] + "\n" + encoded[10:]
	if _, err := imagecheck.DecodeBase64(withNewlines); err != nil {
		t.Fatalf("DecodeBase64 with newlines failed: %v", err)
	}

	unpadded := strings.TrimRight(encoded, "=")
	if _, err := imagecheck.DecodeBase64(unpadded); err != nil {
		t.Fatalf("DecodeBase64 unpadded failed: %v", err)
	}
}

func TestDecodeBase64RejectsJunk(t *testing.T) {
	if _, err := imagecheck.DecodeBase64(""); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := imagecheck.DecodeBase64("!!not base64!!"); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestValidateAcceptsJPEGAndPNG(t *testing.T) {
	limits := imagecheck.Limits{MaxBytes: 1 << 20, MaxDimension: 5000}

	info, err := imagecheck.Validate(testsupport.JPEGBytes(t, 32, 48), limits)
	if err != nil {
		t.Fatalf("Validate jpeg failed: %v", err)
	}
	if info.Format != "jpeg" || info.Width != 32 || info.Height != 48 {
		t.Fatalf("unexpected jpeg info: %#v", info)
	}
	if info.Ext() != ".jpg" {
		t.Fatalf("unexpected extension: %q", info.Ext())
	}

	info, err = imagecheck.Validate(testsupport.PNGBytes(t, 16, 16), limits)
	if err != nil {
		t.Fatalf("Validate png failed: %v", err)
	}
	if info.Format != "png" || info.Ext() != ".png" {
		t.Fatalf("unexpected png info: %#v", info)
	}
}

func TestValidateEnforcesLimits(t *testing.T) {
	data := testsupport.PNGBytes(t, 64, 64)

	if _, err := imagecheck.Validate(data, imagecheck.Limits{MaxBytes: 10}); err == nil {
		t.Fatal("expected error for oversized payload")
	}
	if _, err := imagecheck.Validate(data, imagecheck.Limits{MaxDimension: 32}); err == nil {
		t.Fatal("expected error for oversized dimensions")
	}
	if _, err := imagecheck.Validate([]byte("not an image"), imagecheck.Limits{}); err == nil {
		t.Fatal("expected error for undecodable payload")
	}
	if _, err := imagecheck.Validate(nil, imagecheck.Limits{}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
