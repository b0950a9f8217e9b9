package errors_test

import (
	"fmt"

	"github.com/agentstation/bookingsync/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.NotFoundError{
		Resource: "property",
		ID:       "Lakeside Cabin",
	}

	if errors.IsNotFound(err) {
		fmt.Println("Resource not found")
	}

	// Output: Resource not found
}

// Example_malformedRow shows how row-level failures are classified.
func Example_malformedRow() {
	err := errors.NewMalformedRowError(5, "start_date", "start date or external code is required")

	var rowErr error = &errors.RowError{Row: 5, Stage: "normalize", Err: err}
	if errors.IsMalformedRow(rowErr) {
		fmt.Println(rowErr)
	}

	// Output: row 5 (normalize): row 5 is malformed (start_date): start date or external code is required
}

// Example_persistenceError shows that persistence failures keep their cause.
func Example_persistenceError() {
	cause := errors.New("duplicate entry")
	err := errors.WrapPersistence("create", 0, cause)

	fmt.Println(errors.IsPersistence(err))
	fmt.Println(err)

	// Output:
	// true
	// failed to create booking: duplicate entry
}
