package cache

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func BenchmarkInMemoryCache_Get_Hit(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "linechart1|all", lineFigure, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, "linechart1|all")
	}
}

func BenchmarkInMemoryCache_Set(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, "box-plot1|"+strconv.Itoa(i%64), lineFigure, time.Hour)
	}
}

func BenchmarkInMemoryCache_Parallel(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "hist1|", lineFigure, time.Hour)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = c.Get(ctx, "hist1|")
		}
	})
}
