// Package nextintegerid is a native module generating integer ids.
package nextintegerid

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

const Name = "NextIntegerId"

// Provider registers the module:
//
//	next(list?: Array<{id?: number}>): number
//	allocate(): number
//
// next returns one more than the largest id in list, or 1. allocate
// returns ids from a counter shared by every caller of the provider.
func Provider() bridge.ModuleProvider {
	var counter atomic.Int64
	return func(b *bridge.ModuleBuilder) {
		// next tolerates a missing list, so it reads its arguments directly
		b.AddSyncMethod("next", func(_ context.Context, args dynio.Reader, w dynio.Writer) error {
			list := dynvalue.Null()
			if args.NextArrayItem() {
				list = dynio.ReadValue(args)
			}
			return w.WriteInt64(Next(list))
		})
		bridge.AddSync(b, "allocate", bridge.NoParams(), codec.Int64,
			func(context.Context, struct{}) (int64, error) {
				return counter.Add(1), nil
			})
	}
}

// Next returns one more than the largest id property among the objects in
// list. Ids are converted like JS Number(); non-numeric ids count as 0.
func Next(list dynvalue.Value) int64 {
	arr, ok := list.TryArray()
	if !ok {
		return 1
	}
	var maxID int64
	for _, item := range arr.Items() {
		obj, ok := item.TryObject()
		if !ok {
			continue
		}
		id, ok := obj.Get("id")
		if !ok || id.IsNull() {
			continue
		}
		if n := toInteger(id.AsJSNumber()); n > maxID {
			maxID = n
		}
	}
	return maxID + 1
}

func toInteger(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}
