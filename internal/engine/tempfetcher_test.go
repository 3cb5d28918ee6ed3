package engine_test

import (
	"context"
	"os"
	"testing"

	"github.com/steveyegge/curq/internal/engine"
	"github.com/steveyegge/curq/internal/types"
)

func TestTempFileFetcherWritesDownloadOutputAndCleansUp(t *testing.T) {
	fetcher := engine.NewTempFileFetcher(func(_ context.Context, _ types.FileRef, dest *os.File) error {
		_, err := dest.WriteString("parquet-bytes")
		return err
	})

	path, cleanup, err := fetcher.FetchToTemp(context.Background(), types.FileRef{Format: types.ContentFormatParquet})
	if err != nil {
		t.Fatalf("FetchToTemp: %v", err)
	}
	defer cleanup()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading fetched temp file: %v", err)
	}
	if string(got) != "parquet-bytes" {
		t.Errorf("got %q, want %q", got, "parquet-bytes")
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be removed after cleanup, stat err=%v", err)
	}
}

func TestTempFileFetcherPropagatesDownloadError(t *testing.T) {
	wantErr := os.ErrPermission
	fetcher := engine.NewTempFileFetcher(func(context.Context, types.FileRef, *os.File) error {
		return wantErr
	})

	_, _, err := fetcher.FetchToTemp(context.Background(), types.FileRef{Format: types.ContentFormatParquet})
	if err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
