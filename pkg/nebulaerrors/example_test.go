package nebulaerrors_test

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "missing primary key").
		WithDetail("model", "User")

	fmt.Println(err.Error())

	// Output:
	// schema: missing primary key
}

// ExampleWrap shows how a driver failure is wrapped as a query error.
func ExampleWrap() {
	driverErr := sql.ErrConnDone

	err := nebulaerrors.Wrap(driverErr, nebulaerrors.ErrorTypeQuery, "execute failed").
		WithDetail("operation", "insert")

	if nebulaerrors.IsType(err, nebulaerrors.ErrorTypeQuery) {
		fmt.Println("query error")
	}
	if errors.Is(err, sql.ErrConnDone) {
		fmt.Println("cause preserved")
	}

	// Output:
	// query error
	// cause preserved
}

// ExampleErrorType lists the categories surfaced by the ORM layer.
func ExampleErrorType() {
	fmt.Println(nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "user is required"))
	fmt.Println(nebulaerrors.Newf(nebulaerrors.ErrorTypeArgument, "expected %d args, got %d", 2, 1))
	fmt.Println(nebulaerrors.New(nebulaerrors.ErrorTypeConnection, "pool is not initialized"))

	// Output:
	// config: user is required
	// argument: expected 2 args, got 1
	// connection: pool is not initialized
}

// ExampleIsRetryable shows which categories are worth retrying.
func ExampleIsRetryable() {
	connErr := nebulaerrors.New(nebulaerrors.ErrorTypeConnection, "acquire timed out")
	argErr := nebulaerrors.New(nebulaerrors.ErrorTypeArgument, "bad limit")

	fmt.Println(nebulaerrors.IsRetryable(connErr))
	fmt.Println(nebulaerrors.IsRetryable(argErr))
	fmt.Println(nebulaerrors.IsRetryable(errors.New("plain")))

	// Output:
	// true
	// false
	// false
}
