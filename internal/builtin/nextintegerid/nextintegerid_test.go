package nextintegerid

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/joeycumines/go-nativebridge/internal/testutil"
)

func setupHost(t *testing.T) *bridge.Host {
	t.Helper()
	reg := bridge.NewRegistry()
	reg.MustRegister(Name, Provider())
	h, _, _ := testutil.NewHost(t, reg)
	return h
}

func TestNextIntegerID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args string
		want int64
	}{
		{
			name: "no arguments",
			args: "[]",
			want: 1,
		},
		{
			name: "empty array",
			args: "[[]]",
			want: 1,
		},
		{
			name: "array with ids",
			args: `[[ { "id": 2 }, { "id": 7 }, { "id": 3 } ]]`,
			want: 8,
		},
		{
			name: "array with string ids",
			args: `[[ { "id": "9" }, { "id": "not-a-number" } ]]`,
			want: 10,
		},
		{
			name: "fractional and missing ids",
			args: `[[ { "id": 4.9 }, { "name": "x" }, 12, { "id": null } ]]`,
			want: 5,
		},
		{
			name: "not an array",
			args: `[{ "id": 5 }]`,
			want: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := setupHost(t)

			var args dynvalue.Value
			if err := json.Unmarshal([]byte(tc.args), &args); err != nil {
				t.Fatalf("bad args: %v", err)
			}
			result, err := h.InvokeSyncByName(context.Background(), Name, "next", args)
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if got, _ := result.TryInt64(); got != tc.want {
				t.Fatalf("expected %d, got %s", tc.want, result)
			}
		})
	}
}

func TestAllocate(t *testing.T) {
	t.Parallel()
	h := setupHost(t)
	for want := int64(1); want <= 3; want++ {
		result, err := h.InvokeSyncByName(context.Background(), Name, "allocate", dynvalue.NewArray())
		if err != nil {
			t.Fatalf("call failed: %v", err)
		}
		if got, _ := result.TryInt64(); got != want {
			t.Fatalf("expected %d, got %s", want, result)
		}
	}
}
