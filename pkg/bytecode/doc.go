// Package bytecode provides the instruction set, compiler surface and
// stack-based virtual machine of the jscore engine.
//
// The bytecode format is designed for:
//   - Compact representation (a tag byte followed by fixed-width operands)
//   - Self-description (every tag has an OpcodeInfo entry giving its name,
//     stack effect and operand widths, so tools walk the stream without
//     knowing individual opcodes)
//   - Easy serialization (canonical CBOR, stored in the chunk cache or
//     written to disk by jsvm)
//
// # Architecture Overview
//
//   - Opcodes: stack, push, environment, control-flow, construction and
//     completion families. Opcodes that take a count or index come in
//     8, 16 and 32 bit variants which share one implementation.
//
//   - Chunk: the instruction stream together with its literal pool, the
//     binding locators the environment opcodes refer to and the scope
//     table produced by the resolver.
//
//   - Compiler: wraps a scope.Resolver and a Chunk. Front ends call it one
//     construct at a time; it picks encodings, patches jumps and turns
//     resolver answers into binding opcodes.
//
//   - VM: executes a chunk one instruction at a time. Every instruction
//     reports a Completion; the loop stops at the first Return or Throw.
//
// # Environments
//
// Each scope record of the chunk becomes a runtime Environment when
// ENTER_SCOPE runs. Locators address an environment by depth and carry the
// scope index so a mismatch is caught as an internal fault instead of
// silently reading the wrong slot. Lexical slots are uninitialized until
// their declaration runs; touching them earlier throws ReferenceError.
//
// # Errors
//
// Language errors travel the throw path and surface as *Exception.
// Inconsistencies in the instruction stream surface as *jserror.Fault and
// stop the VM.
package bytecode
