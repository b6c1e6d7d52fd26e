// Copyright (c) 2025 A Bit of Help, Inc.

package dataprocessor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

func double(data []byte) ([]byte, error) {
	result := make([]byte, len(data))
	for i, b := range data {
		result[i] = b * 2
	}
	return result, nil
}

func TestProcess_Success(t *testing.T) {
	result, err := Process(double, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result) != string([]byte{2, 4, 6}) {
		t.Errorf("Expected [2 4 6], got %v", result)
	}
}

func TestProcess_Panic(t *testing.T) {
	result, err := Process(func(data []byte) ([]byte, error) {
		_ = data[len(data)+1]
		return data, nil
	}, []byte{1})

	if !errors.Is(err, customErrors.ErrPanic) {
		t.Fatalf("Expected ErrPanic, got %v", err)
	}
	if !strings.Contains(err.Error(), "stack:") {
		t.Error("Expected the stack trace in the error message")
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestProcessWithContext_Success(t *testing.T) {
	// Test data
	data := []byte{1, 2, 3, 4, 5}
	expected := []byte{2, 4, 6, 8, 10}

	// Process the data
	result, err := ProcessWithContext(context.Background(), double, data)

	// Check for errors
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Check the result
	if len(result) != len(expected) {
		t.Fatalf("Expected result length %d, got %d", len(expected), len(result))
	}
	for i := range expected {
		if result[i] != expected[i] {
			t.Errorf("Expected result[%d] = %d, got %d", i, expected[i], result[i])
		}
	}
}

func TestProcessWithContext_ProcessFuncError(t *testing.T) {
	expectedErr := errors.New("process error")
	processFunc := func(data []byte) ([]byte, error) {
		return nil, expectedErr
	}

	result, err := ProcessWithContext(context.Background(), processFunc, []byte{1, 2, 3})

	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected error %v, got %v", expectedErr, err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestProcessWithContext_CanceledContext(t *testing.T) {
	// Create a canceled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ProcessWithContext(ctx, double, []byte{1, 2, 3})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
	if !customErrors.IsCancellationError(err) {
		t.Errorf("Expected a cancellation error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestProcessWithContext_Timeout(t *testing.T) {
	// Create a context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Create a processing function that takes longer than the timeout
	processFunc := func(data []byte) ([]byte, error) {
		time.Sleep(100 * time.Millisecond)
		return data, nil
	}

	result, err := ProcessWithContext(ctx, processFunc, []byte{1, 2, 3})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded error, got %v", err)
	}
	if !errors.Is(err, customErrors.ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestProcessWithContext_Panic(t *testing.T) {
	processFunc := func(data []byte) ([]byte, error) {
		panic("test panic")
	}

	result, err := ProcessWithContext(context.Background(), processFunc, []byte{1, 2, 3})

	if !errors.Is(err, customErrors.ErrPanic) {
		t.Errorf("Expected ErrPanic, got %v", err)
	}
	if !strings.Contains(err.Error(), "test panic") {
		t.Errorf("Expected panic value in error, got %q", err.Error())
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}
