package resilience

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "typed rate limit error",
			err:  NewRateLimitError("anthropic", eris.New("request rejected")),
			want: true,
		},
		{
			name: "typed error wrapped deeper",
			err:  eris.Wrap(NewRateLimitError("google", eris.New("rejected")), "generate"),
			want: true,
		},
		{
			name: "429 in message",
			err:  eris.New("unexpected status 429"),
			want: true,
		},
		{
			name: "rate limit wording",
			err:  eris.New("Rate Limit Exceeded"),
			want: true,
		},
		{
			name: "snake case rate_limit",
			err:  eris.New("error code rate_limit_error"),
			want: true,
		},
		{
			name: "quota exhaustion",
			err:  eris.New("monthly quota exceeded"),
			want: true,
		},
		{
			name: "grpc resource exhausted",
			err:  eris.New("rpc error: code = RESOURCE_EXHAUSTED"),
			want: true,
		},
		{
			name: "anthropic overloaded",
			err:  eris.New("overloaded_error: try again later"),
			want: true,
		},
		{
			name: "plain server error",
			err:  eris.New("internal server error"),
			want: false,
		},
		{
			name: "timeout is not rate limiting",
			err:  eris.New("context deadline exceeded"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}

func TestRateLimitErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := eris.New("too many requests")
	err := NewRateLimitError("anthropic", cause)

	assert.ErrorContains(t, err, "anthropic: rate limited")
	assert.ErrorIs(t, err, cause)
}
