package network

// Result is the outcome of one call: either Data or Err is set.
type Result struct {
	Data []byte
	Err  *NetworkError
}

// Succeeded returns a successful Result carrying data.
func Succeeded(data []byte) Result {
	return Result{Data: data}
}

// Failed returns a failed Result.
func Failed(err *NetworkError) Result {
	return Result{Err: err}
}

// IsSuccess reports whether the call produced data.
func (r Result) IsSuccess() bool {
	return r.Err == nil
}

// Unwrap returns the data or the error as a conventional pair.
func (r Result) Unwrap() ([]byte, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Data, nil
}
