package main

import (
	"fmt"
	"os"
)

//go:noinline
func add(a, b int) int {
	return a + b
}

//go:noinline
func sub(a, b int) int {
	return a - b
}

//go:noinline
func div(a, b int) int {
	if b == 0 {
		return 0
	}
	return a / b
}

// eval dispatches on a dense opcode switch, which the compiler lowers to a
// jump table.
//
//go:noinline
func eval(op byte, a, b int) int {
	switch op {
	case 0:
		return add(a, b)
	case 1:
		return sub(a, b)
	case 2:
		return a * b
	case 3:
		return div(a, b)
	case 4:
		return a % (b | 1)
	case 5:
		return a & b
	case 6:
		return a | b
	case 7:
		return a ^ b
	default:
		return 0
	}
}

//go:noinline
func report(name string, v int) {
	fmt.Printf("%s = %d\n", name, v)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: demo-app <opcode>")
		os.Exit(1)
	}

	var op byte
	if _, err := fmt.Sscanf(os.Args[1], "%d", &op); err != nil {
		fmt.Printf("Unknown opcode: %s\n", os.Args[1])
		os.Exit(1)
	}
	report("eval", eval(op, 30, 10))
}
