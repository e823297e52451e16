package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeData, "arc index out of range").
		WithDetail("id", "17031").
		WithDetail("index", 3280)

	fmt.Println(err.Error())

	// Output:
	// data: arc index out of range (id=17031, index=3280)
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeData, "failed to decompress input")

	if errors.IsType(err, errors.ErrorTypeData) {
		fmt.Println("This is a data error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Caused by unexpected EOF")
	}

	// Output:
	// This is a data error
	// Caused by unexpected EOF
}

// ExampleTypeOf demonstrates classifying errors for exit handling.
func ExampleTypeOf() {
	for _, err := range []error{
		errors.New(errors.ErrorTypeConfig, "object name is required"),
		errors.Wrap(errors.New(errors.ErrorTypeFile, "no such file"), errors.ErrorTypeData, "failed to load topology"),
		io.EOF,
	} {
		fmt.Println(errors.TypeOf(err))
	}

	// Output:
	// config
	// data
	// internal
}
