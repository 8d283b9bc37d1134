package pipeline

import "context"

type channelKey struct{}

// WithChannel tags ctx with the name of the channel asking the question.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

func ChannelFrom(ctx context.Context) string {
	if ch, ok := ctx.Value(channelKey{}).(string); ok {
		return ch
	}
	return "unknown"
}
