package gcp

import "testing"

func TestResolveObjectStorageConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		mode     string
		emulator string
		bucket   string
		want     ObjectStorageMode
		fallback bool
		wantErr  bool
	}{
		{name: "default inline", want: ObjectStorageModeInline},
		{name: "bucket implies gcs", bucket: "trip-images", want: ObjectStorageModeGCS},
		{name: "explicit gcs", mode: "gcs", emulator: "http://fake-gcs:4443", bucket: "b", want: ObjectStorageModeGCS},
		{name: "explicit emulator", mode: "GCS_EMULATOR", emulator: "http://fake-gcs:4443", bucket: "b", want: ObjectStorageModeGCSEmulator},
		{name: "emulator fallback", emulator: "http://fake-gcs:4443", bucket: "b", want: ObjectStorageModeGCSEmulator, fallback: true},
		{name: "explicit inline ignores bucket", mode: "inline", bucket: "b", want: ObjectStorageModeInline},
		{name: "invalid mode", mode: "local", wantErr: true},
		{name: "gcs without bucket", mode: "gcs", wantErr: true},
		{name: "emulator without host", mode: "gcs_emulator", bucket: "b", wantErr: true},
		{name: "emulator bad host", mode: "gcs_emulator", emulator: "fake-gcs:4443", bucket: "b", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.emulator)
			t.Setenv("IMAGE_GCS_BUCKET_NAME", tc.bucket)

			cfg, err := ResolveObjectStorageConfigFromEnv()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got mode=%q", cfg.Mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
			}
			if cfg.Mode != tc.want {
				t.Fatalf("mode: want=%q got=%q", tc.want, cfg.Mode)
			}
			if cfg.CompatibilityFallback != tc.fallback {
				t.Fatalf("compatibility fallback: want=%v got=%v", tc.fallback, cfg.CompatibilityFallback)
			}
		})
	}
}
