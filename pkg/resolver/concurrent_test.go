package resolver

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/git-hulk/pathtemplate/pkg/entity"
	"github.com/git-hulk/pathtemplate/pkg/template"
)

type slowHarvester struct {
	active        int64
	maxConcurrent int64
	delay         time.Duration
}

func (h *slowHarvester) Harvest(_ context.Context, _ entity.Entity, _ []string) (template.Data, error) {
	cur := atomic.AddInt64(&h.active, 1)
	for {
		maxVal := atomic.LoadInt64(&h.maxConcurrent)
		if cur <= maxVal || atomic.CompareAndSwapInt64(&h.maxConcurrent, maxVal, cur) {
			break
		}
	}
	time.Sleep(h.delay)
	atomic.AddInt64(&h.active, -1)
	return template.Data{}, nil
}

func TestResolveEach(t *testing.T) {
	templates := []*template.Template{
		template.MustNew("{shot}"),
		template.MustNew("{sequence}/{shot}"),
	}
	requests := make([]Request, 0, 9)
	for i := 0; i < 8; i++ {
		requests = append(requests, Request{
			Data:      template.Data{"sequence": "sq010", "shot": fmt.Sprintf("sh%03d", i)},
			Templates: templates,
		})
	}
	requests = append(requests, Request{Data: template.Data{}, Templates: templates})

	results, err := New().ResolveEach(context.Background(), requests, 3)
	require.NoError(t, err)
	require.Len(t, results, 9)
	for i := 0; i < 8; i++ {
		require.NoError(t, results[i].Err)
		require.Equal(t, fmt.Sprintf("sq010/sh%03d", i), results[i].Matches[0].Path)
	}
	require.ErrorIs(t, results[8].Err, ErrNoFormattableTemplate)
}

func TestResolveEach_Limit(t *testing.T) {
	harvester := &slowHarvester{delay: 10 * time.Millisecond}
	r := New(WithHarvester(harvester))
	version := newVersion()

	requests := make([]Request, 12)
	for i := range requests {
		requests[i] = Request{
			Data:      template.Data{"a": "x"},
			Templates: []*template.Template{template.MustNew("{a}")},
			Entity:    version,
		}
	}
	results, err := r.ResolveEach(context.Background(), requests, 2)
	require.NoError(t, err)
	for _, result := range results {
		require.NoError(t, result.Err)
	}
	require.LessOrEqual(t, atomic.LoadInt64(&harvester.maxConcurrent), int64(2))
}

func TestResolveEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := New().ResolveEach(ctx, []Request{
		{Data: template.Data{"a": "x"}, Templates: []*template.Template{template.MustNew("{a}")}},
	}, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, results[0].Err, context.Canceled)
}
