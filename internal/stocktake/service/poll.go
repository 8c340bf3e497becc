package service

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout 轮询在期限内未得到结果
var ErrPollTimeout = errors.New("轮询超时")

// Poll 以固定间隔执行fn，直到fn返回true、返回错误或超时。
// fn返回(false, nil)表示继续等待
func Poll(ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrPollTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
