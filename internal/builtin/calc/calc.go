// Package calc is a sample native module exercising every return shape:
// arithmetic over promises, callbacks and sync returns, struct and union
// arguments, and constants.
package calc

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Name is the module name scripts see under NativeModules.
const Name = "Calc"

// Point is a 2D integer point, marshalled as {X, Y}.
type Point struct {
	X int
	Y int
}

var PointCodec = codec.Struct("Point",
	codec.FieldRef("X", codec.Int, func(p *Point) *int { return &p.X }),
	codec.FieldRef("Y", codec.Int, func(p *Point) *int { return &p.Y }),
)

// Shape is one of *Circle, *Rect or *Polygon.
type Shape interface {
	Area() float64
}

type Circle struct {
	Center Point
	Radius float64
}

func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type Rect struct {
	Min, Max Point
}

func (r *Rect) Area() float64 {
	return math.Abs(float64((r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y)))
}

type Polygon struct {
	Points []Point
}

// Area uses the shoelace formula.
func (p *Polygon) Area() float64 {
	var sum int
	for i, a := range p.Points {
		b := p.Points[(i+1)%len(p.Points)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(float64(sum)) / 2
}

var ShapeCodec = codec.Union[Shape]("Shape",
	codec.Case[Shape]("circle", codec.Pointer(codec.Struct("Circle",
		codec.FieldRef("Center", PointCodec, func(c *Circle) *Point { return &c.Center }),
		codec.FieldRef("Radius", codec.Float64, func(c *Circle) *float64 { return &c.Radius }),
	))),
	codec.Case[Shape]("rect", codec.Pointer(codec.Struct("Rect",
		codec.FieldRef("Min", PointCodec, func(r *Rect) *Point { return &r.Min }),
		codec.FieldRef("Max", PointCodec, func(r *Rect) *Point { return &r.Max }),
	))),
	codec.Case[Shape]("polygon", codec.Pointer(codec.Struct("Polygon",
		codec.FieldRef("Points", codec.Slice(PointCodec), func(p *Polygon) *[]Point { return &p.Points }),
	))),
)

// Constants are exported as the module's constants.
type Constants struct {
	Const1 string
	Const2 Point
}

var constantsCodec = codec.Struct("Constants",
	codec.FieldRef("const1", codec.String, func(c *Constants) *string { return &c.Const1 }),
	codec.FieldRef("const2", PointCodec, func(c *Constants) *Point { return &c.Const2 }),
)

// DefaultConstants is what Provider exports.
var DefaultConstants = Constants{Const1: "A", Const2: Point{X: 1, Y: 2}}

// ErrDivisionByZero is the rejection message of divide and quotient.
const ErrDivisionByZero = "Division by 0"

// Provider registers the module:
//
//	add(x, y): Promise<int>
//	divide(x, y, resolve, reject)
//	quotient(x, y): Promise<float>
//	multiply(x, y): int (sync)
//	negate(x, callback)
//	centroid(points): Point (sync)
//	translate(points, dx, dy): Promise<Point[]>
//	area(shape): float (sync)
//	log(message) (void)
func Provider(logger *slog.Logger) bridge.ModuleProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(b *bridge.ModuleBuilder) {
		bridge.AddConstants(b, constantsCodec, DefaultConstants)
		b.AddConstant("maxSafeInteger", dynvalue.Int64(1<<53))

		bridge.AddPromise(b, "add", bridge.Params2(codec.Int64, codec.Int64), codec.Int64,
			func(_ context.Context, p codec.Tuple2[int64, int64], promise bridge.Promise[int64]) error {
				return promise.Resolve(p.First + p.Second)
			})

		bridge.AddTwoCallbacks(b, "divide", bridge.Params2(codec.Int64, codec.Int64), codec.Int64,
			func(_ context.Context, p codec.Tuple2[int64, int64], resolve bridge.Resolver[int64], reject bridge.Rejecter) error {
				if p.Second == 0 {
					return reject.Reject(bridge.NewJSError(ErrDivisionByZero,
						dynvalue.Prop("code", dynvalue.String("E_DIVIDE")),
						dynvalue.Prop("dividend", dynvalue.Int64(p.First)),
					))
				}
				return resolve.Resolve(p.First / p.Second)
			})

		// a plain error rejects too, carrying only its message
		bridge.AddPromise(b, "quotient", bridge.Params2(codec.Float64, codec.Float64), codec.Float64,
			func(_ context.Context, p codec.Tuple2[float64, float64], promise bridge.Promise[float64]) error {
				if p.Second == 0 {
					return fmt.Errorf("quotient: %s", ErrDivisionByZero)
				}
				return promise.Resolve(p.First / p.Second)
			})

		bridge.AddSync(b, "multiply", bridge.Params2(codec.Int64, codec.Int64), codec.Int64,
			func(_ context.Context, p codec.Tuple2[int64, int64]) (int64, error) {
				return p.First * p.Second, nil
			})

		bridge.AddCallback(b, "negate", bridge.Params1(codec.Float64), codec.Float64,
			func(_ context.Context, x float64, cb bridge.Callback[float64]) error {
				return cb.Invoke(-x)
			})

		bridge.AddSync(b, "centroid", bridge.Params1(codec.Slice(PointCodec)), PointCodec,
			func(_ context.Context, points []Point) (Point, error) {
				if len(points) == 0 {
					return Point{}, bridge.NewJSError("centroid of no points")
				}
				var sum Point
				for _, p := range points {
					sum.X += p.X
					sum.Y += p.Y
				}
				return Point{X: sum.X / len(points), Y: sum.Y / len(points)}, nil
			})

		bridge.AddPromise(b, "translate", bridge.Params3(codec.Slice(PointCodec), codec.Int, codec.Int), codec.Slice(PointCodec),
			func(_ context.Context, p codec.Tuple3[[]Point, int, int], promise bridge.Promise[[]Point]) error {
				out := make([]Point, len(p.First))
				for i, pt := range p.First {
					out[i] = Point{X: pt.X + p.Second, Y: pt.Y + p.Third}
				}
				return promise.Resolve(out)
			})

		bridge.AddSync(b, "area", bridge.Params1(ShapeCodec), codec.Float64,
			func(_ context.Context, s Shape) (float64, error) {
				if s == nil {
					return 0, bridge.NewJSError("area: no shape")
				}
				return s.Area(), nil
			})

		bridge.AddVoid(b, "log", bridge.Params1(codec.String), func(_ context.Context, msg string) error {
			logger.Info(msg, "module", Name)
			return nil
		})
	}
}
