package feedspec

import (
	"context"
	"net"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bitechdev/FeedSpec/pkg/logger"
)

// debugEnabled reports whether the FEEDSPEC_DEBUG switch is truthy.
// This is the only environment coupling the library has.
func debugEnabled() bool {
	switch strings.ToLower(os.Getenv("FEEDSPEC_DEBUG")) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// commandLogHook logs every remote command when debug mode is on.
type commandLogHook struct{}

func (commandLogHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		logger.Debug("redis dial %s %s", network, addr)
		return next(ctx, network, addr)
	}
}

func (commandLogHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		started := time.Now()
		err := next(ctx, cmd)
		logger.Debug("redis %s (%v) err=%v", cmd.String(), time.Since(started), err)
		return err
	}
}

func (commandLogHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		started := time.Now()
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			logger.Debug("redis pipeline> %s err=%v", cmd.String(), cmd.Err())
		}
		logger.Debug("redis pipeline of %d commands (%v) err=%v", len(cmds), time.Since(started), err)
		return err
	}
}
