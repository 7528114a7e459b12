package media

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
)

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

var pngB64 = base64.StdEncoding.EncodeToString(pngBytes)

type memStore struct {
	mu   sync.Mutex
	keys []string
	err  error
	wait time.Duration
}

func (m *memStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.wait > 0 {
		select {
		case <-time.After(m.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	m.keys = append(m.keys, key)
	m.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

func TestProcessInlineKeepsDataURIs(t *testing.T) {
	p := NewProcessor(nil, nil, Config{})
	out, err := p.Process(context.Background(), "sessions/s1", []Upload{{Name: "driverPicture", Raw: "data:image/png;base64," + pngB64}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out[0].Inline || out[0].ContentType != "image/png" || out[0].Data != pngB64 {
		t.Fatalf("inline result: %+v", out[0])
	}
	if out[0].Ref != "data:image/png;base64,"+pngB64 {
		t.Fatalf("ref: got=%q", out[0].Ref)
	}
}

func TestProcessUploadsToStore(t *testing.T) {
	store := &memStore{}
	p := NewProcessor(nil, store, Config{})
	out, err := p.Process(context.Background(), "sessions/s1/", []Upload{
		{Name: "vehicleImages", Raw: pngB64},
		{Name: "seal SEAL/001", Raw: pngB64},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out[0].Ref != "https://cdn.test/sessions/s1/vehicleImages-0.png" {
		t.Fatalf("ref[0]: got=%q", out[0].Ref)
	}
	if out[1].Ref != "https://cdn.test/sessions/s1/seal_SEAL_001-1.png" || out[1].Inline {
		t.Fatalf("ref[1]: %+v", out[1])
	}
	if len(store.keys) != 2 {
		t.Fatalf("uploads: want=2 got=%d", len(store.keys))
	}
}

func TestProcessRejectsBadInput(t *testing.T) {
	p := NewProcessor(nil, nil, Config{MaxImageBytes: 16})
	cases := map[string]struct {
		raw  string
		code string
	}{
		"empty":     {raw: " ", code: apierr.CodeValidation},
		"not b64":   {raw: "!!!", code: apierr.CodeValidation},
		"too large": {raw: pngB64, code: apierr.CodePayloadTooLarge},
		"not image": {raw: base64.StdEncoding.EncodeToString([]byte("hello")), code: apierr.CodeValidation},
		"bad uri":   {raw: "data:image/png," + pngB64, code: apierr.CodeValidation},
	}
	for name, tc := range cases {
		_, err := p.Process(context.Background(), "x", []Upload{{Name: "img", Raw: tc.raw}})
		if !apierr.IsCode(err, tc.code) {
			t.Fatalf("%s: want=%s got=%v", name, tc.code, err)
		}
		if !strings.Contains(err.Error(), "img") {
			t.Fatalf("%s: error should name the upload: %v", name, err)
		}
	}
}

func TestProcessStoreFailureAbortsBatch(t *testing.T) {
	p := NewProcessor(nil, &memStore{err: errors.New("bucket down")}, Config{})
	_, err := p.Process(context.Background(), "x", []Upload{{Name: "a", Raw: pngB64}, {Name: "b", Raw: pngB64}})
	if !apierr.IsCode(err, apierr.CodeInternal) {
		t.Fatalf("want internal got=%v", err)
	}
}

func TestProcessTimesOut(t *testing.T) {
	p := NewProcessor(nil, &memStore{wait: time.Second}, Config{EncodeTimeout: 20 * time.Millisecond})
	_, err := p.Process(context.Background(), "x", []Upload{{Name: "a", Raw: pngB64}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded got=%v", err)
	}
}
