// Package funcscope reconstructs functions on top of the control-flow graph
// of a disassembled binary. The graph (code blocks and labeled edges) and
// the function tables (entry blocks and member blocks per function) are
// produced by a disassembler; funcscope turns them into Function values and
// infers where control leaves each function.
//
// # Building Functions
//
// Use [BuildFunctions] with a [Module] view. Every function declared in the
// entries table becomes a [Function] carrying its entry blocks, its member
// blocks and the symbols naming its entry blocks. Inconsistent tables are
// reported as [MalformedInputError].
//
// # Exit Blocks
//
// A block is an exit block when control leaves the function from it, either
// by returning or by a tail call. [Function.ExitBlocks] computes the set on
// first use with a [Classifier], an ordered list of rules where the first
// decisive rule wins:
//   - return: the block ends in a return instruction
//   - resolved-indirect: the block ends in an indirect jump whose known
//     targets all stay inside the function, so it is not an exit
//   - tail-call: the single outgoing edge is an unconditional direct branch
//     to a block outside the function
//
// How a block ends is answered by a [TerminatorOracle]. [EdgeTerminators]
// reads it from edge labels; [DecodingTerminators] decodes the machine code
// of the block (AMD64 and ARM64), see [NewTerminatorsFromELF]. Callers with
// neither can opt into the coarser edge-only heuristic with
// [WithEdgeHeuristic].
//
// Indirect jumps with targets escaping the function are left undecided and
// therefore not reported as exits: static analysis cannot tell a jump table
// from an indirect tail call.
//
// # Concurrency
//
// Functions are read-only apart from the memoized exit set, which is
// computed at most once. [MaterializeExitBlocks] computes the exit sets of
// many functions in parallel.
package funcscope
