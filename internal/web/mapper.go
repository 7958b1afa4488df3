package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/mediahub/mediahub/internal/errorz"
)

// maxBodyBytes limits the size of JSON request bodies.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody     = errors.New("request body is required")
	errMalformedBody = errors.New("request body is not valid JSON")
)

// mapper is a generic HTTP handler that maps requests to target
// function calls and writes the output to the response.
type mapper[IN, OUT any] struct {
	s      *Server
	req    func(*http.Request) (IN, error)
	target func(context.Context, IN) (OUT, error)
	res    func(result[IN, OUT]) error
}

// result is the result of a succesful request.
// it contains all relevant data because we can't know
// in advance what we will need to construct a response.
type result[IN, OUT any] struct {
	s   *Server
	r   *http.Request
	w   http.ResponseWriter
	in  IN
	out OUT
}

// mapBoth creates a HTTP Handler that:
// 1. Maps the JSON request body to a value of input type IN.
// 2. Calls the target func with that value.
// 3. Writes the output of type OUT as JSON with status 200.
//
// Errors are written using the server error handler.
func mapBoth[IN, OUT any](s *Server, targetFunc func(context.Context, IN) (OUT, error)) *mapper[IN, OUT] {
	return &mapper[IN, OUT]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return defaultRequest[IN](r)
		},
		target: targetFunc,
		res: func(r result[IN, OUT]) error {
			return defaultResponse(r)
		},
	}
}

// mapRequest creates a HTTP Handler that:
// 1. Maps the JSON request body to a value of type IN.
// 2. Calls the target func with that value.
// 3. Writes a status 204 response if target func was successful.
//
// Errors are written using the server error handler.
func mapRequest[IN any](s *Server, targetFunc func(context.Context, IN) error) *mapper[IN, struct{}] {
	return &mapper[IN, struct{}]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return defaultRequest[IN](r)
		},
		target: func(ctx context.Context, in IN) (struct{}, error) {
			err := targetFunc(ctx, in)
			if err != nil {
				return struct{}{}, err
			}

			return struct{}{}, nil
		},
		res: func(r result[IN, struct{}]) error {
			r.w.WriteHeader(http.StatusNoContent)
			return nil
		},
	}
}

// mapResponse creates a HTTP Handler that:
// 1. Calls the target func.
// 2. Writes the returned value of type OUT as JSON with status 200.
//
// Errors are written using the server error handler.
func mapResponse[OUT any](s *Server, targetFunc func(context.Context) (OUT, error)) *mapper[struct{}, OUT] {
	return &mapper[struct{}, OUT]{
		s: s,
		req: func(r *http.Request) (struct{}, error) {
			return struct{}{}, nil
		},
		target: func(ctx context.Context, _ struct{}) (OUT, error) {
			out, err := targetFunc(ctx)
			if err != nil {
				return out, err
			}

			return out, nil
		},
		res: func(r result[struct{}, OUT]) error {
			return defaultResponse(r)
		},
	}
}

// request overwrites the function that maps the request to the input type.
func (e *mapper[IN, OUT]) request(fn func(r *http.Request) (IN, error)) *mapper[IN, OUT] {
	e.req = fn
	return e
}

// response overwrites the function that writes the output to the response.
func (e *mapper[IN, OUT]) response(fn func(result[IN, OUT]) error) *mapper[IN, OUT] {
	e.res = fn
	return e
}

func (e *mapper[IN, OUT]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := e.req(r)
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}

	out, err := e.target(r.Context(), in)
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}

	result := result[IN, OUT]{
		s:   e.s,
		r:   r,
		w:   w,
		in:  in,
		out: out,
	}

	err = e.res(result)
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}
}

// defaultRequest is the default way to map a request to a struct,
// the body is decoded as JSON.
func defaultRequest[IN any](r *http.Request) (IN, error) {
	var in IN
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in)
	if errors.Is(err, io.EOF) {
		return in, errorz.InvalidInput{errorz.Keyed{Key: "body", Err: errEmptyBody}}
	}
	if err != nil {
		return in, errorz.InvalidInput{errorz.Keyed{Key: "body", Err: errMalformedBody}}
	}

	return in, nil
}

// queryRequest maps the query string of a request to a struct.
func queryRequest[IN any](s *Server, r *http.Request) (IN, error) {
	var in IN
	err := s.decoder.Decode(&in, r.URL.Query())
	return in, decodeError(err)
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}

// defaultResponse is the default way to write a response to the client.
func defaultResponse[IN, OUT any](r result[IN, OUT]) error {
	return writeJSON(r.w, http.StatusOK, r.out)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
