// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestIsSuccess(t *testing.T) {
	for _, code := range []int{200, 201, 204, 299} {
		if !IsSuccess(code) {
			t.Errorf("IsSuccess(%d) = false", code)
		}
	}
	for _, code := range []int{0, 199, 300, 304, 404, 500} {
		if IsSuccess(code) {
			t.Errorf("IsSuccess(%d) = true", code)
		}
	}
}

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(strings.NewReader(`{"title":"x"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"title":"x"}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})

	t.Run("bounded", func(t *testing.T) {
		huge := io.LimitReader(zeroReader{}, MaxResponseSize+100)
		data, err := ReadResponse(huge)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if int64(len(data)) != MaxResponseSize {
			t.Fatalf("read %d bytes, want %d", len(data), MaxResponseSize)
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		var result struct {
			Title string `json:"title"`
		}
		if err := DecodeResponse(strings.NewReader(`{"title":"Example"}`), &result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Title != "Example" {
			t.Fatalf("title = %q", result.Title)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		err := DecodeResponse(strings.NewReader(`<html>`), &struct{}{})
		if err == nil {
			t.Fatal("expected error for non-JSON body")
		}
		if !strings.Contains(err.Error(), "decoding response body") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("bad request")); got != "bad request" {
		t.Errorf("ErrorBody = %q", got)
	}
	long := bytes.Repeat([]byte("x"), int(maxErrorBody)*2)
	if got := ErrorBody(bytes.NewReader(long)); int64(len(got)) != maxErrorBody {
		t.Errorf("ErrorBody length = %d, want %d", len(got), maxErrorBody)
	}
}

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
