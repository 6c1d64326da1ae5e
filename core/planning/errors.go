package planning

import "errors"

var (
	// ErrEmptyHorizon is returned when no planning day remains after the
	// inventory snapshot.
	ErrEmptyHorizon = errors.New("empty planning horizon")
	// ErrStaleSnapshot is returned when the inventory snapshot predates the
	// day before start, leaving days with unknown stock.
	ErrStaleSnapshot = errors.New("inventory snapshot older than the day before start")
	// ErrOutOfHorizon is returned when inventory is resolved after the last
	// planning day or between the snapshot and the first planning day.
	ErrOutOfHorizon = errors.New("date outside planning horizon")
	// ErrUnsupportedState is returned when a node cannot hold the requested
	// storage state.
	ErrUnsupportedState = errors.New("storage state not supported by node")
	// ErrUnknownProduct is returned for demand or inventory of a product that
	// is not part of the run.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrUnknownRoute is returned for trucks on lanes without a route.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("invalid planning parameters")
	// ErrFormulation is returned when a solved plan breaks a property the
	// model is supposed to guarantee.
	ErrFormulation = errors.New("formulation defect")
)
