package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skosovsky/agentkit"
)

// Operation is an arithmetic operation of CalculatorTool.
type Operation string

const (
	OpAdd Operation = "add"
	OpSub Operation = "sub"
	OpMul Operation = "mul"
	OpDiv Operation = "div"
)

func (Operation) EnumValues() []string {
	return []string{string(OpAdd), string(OpSub), string(OpMul), string(OpDiv)}
}

var errDivisionByZero = errors.New("division by zero")

type calcArgs struct {
	Op Operation `json:"op" description:"Operation to apply" default:"add"`
	A  float64   `json:"a" description:"Left operand"`
	B  float64   `json:"b" description:"Right operand"`
}

type calcResult struct {
	Result float64
}

// CalculatorTool does basic arithmetic.
type CalculatorTool struct{}

func (CalculatorTool) Description() string { return "Apply an arithmetic operation to two numbers" }

func (CalculatorTool) Entries() []agentkit.Entry {
	return []agentkit.Entry{agentkit.NewEntry(calculate)}
}

func calculate(_ context.Context, args calcArgs) (calcResult, error) {
	switch args.Op {
	case OpAdd:
		return calcResult{args.A + args.B}, nil
	case OpSub:
		return calcResult{args.A - args.B}, nil
	case OpMul:
		return calcResult{args.A * args.B}, nil
	case OpDiv:
		if args.B == 0 {
			return calcResult{}, &agentkit.ClientError{Reason: errDivisionByZero.Error(), Err: errDivisionByZero}
		}
		return calcResult{args.A / args.B}, nil
	default:
		return calcResult{}, fmt.Errorf("unsupported operation %q", args.Op)
	}
}

type clockArgs struct {
	Zone string `json:"zone" description:"IANA time zone name" default:"UTC"`
}

type clockResult struct {
	Zone string
	Time string
}

// ClockTool reports the current time in a zone.
type ClockTool struct {
	now func() time.Time
}

func (ClockTool) Description() string { return "Current date and time in a time zone" }

func (c ClockTool) Entries() []agentkit.Entry {
	return []agentkit.Entry{agentkit.NewEntry(func(_ context.Context, args clockArgs) (clockResult, error) {
		loc, err := time.LoadLocation(args.Zone)
		if err != nil {
			return clockResult{}, &agentkit.ClientError{Reason: fmt.Sprintf("unknown zone %q", args.Zone), Err: err}
		}
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		return clockResult{Zone: loc.String(), Time: now().In(loc).Format(time.RFC3339)}, nil
	})}
}

func builtinTools() []agentkit.Tool {
	return []agentkit.Tool{CalculatorTool{}, ClockTool{}}
}
