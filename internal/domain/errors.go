package domain

import "errors"

var (
	// ErrDataUnavailable means neither the clustered nor the raw dataset exists.
	ErrDataUnavailable = errors.New("station data unavailable")

	// ErrInvalidDataset means a source was found but cannot be used as a RecordSet.
	ErrInvalidDataset = errors.New("invalid station dataset")

	// ErrUnknownYear means a requested year has no ridership column.
	ErrUnknownYear = errors.New("unknown ridership year")
)
