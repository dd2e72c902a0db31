package httpx

import (
	"net/http"
)

// DefaultTransport is similar to the default http.DefaultTransport used by the package.
var DefaultTransport http.RoundTripper = Transport()

// DefaultInsecureTransport is the default http.DefaultTransport used by the package,
// with TLS insecure skip verify.
var DefaultInsecureTransport http.RoundTripper = Transport(TransportOptions().WithoutInsecureVerify())

// Transport returns a new http.Transport with the given options,
// the result http.Transport is used for constructing http.Client.
func Transport(opts ...*TransportOption) *http.Transport {
	var o *TransportOption
	if len(opts) > 0 {
		o = opts[0]
	} else {
		o = TransportOptions()
	}

	return o.transport
}

// RoundTripperFunc adapts a plain function to the http.RoundTripper interface.
type RoundTripperFunc func(req *http.Request) (*http.Response, error)

func (fn RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

// RoundTripperChain mutates the request with Do before handing it to Next.
type RoundTripperChain struct {
	Do   func(req *http.Request) error
	Next http.RoundTripper
}

func (c RoundTripperChain) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.Do != nil {
		if err := c.Do(req); err != nil {
			return nil, err
		}
	}
	if c.Next != nil {
		return c.Next.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}
