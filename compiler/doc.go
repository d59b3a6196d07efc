/*

Process of compilation

RPN Program Text ->
	ExtractVariables ->
Variables (declare types and shapes) ->
	Compile: per instruction
		push operand type ->
		op.Registry.Match ->
		op.Registry.Finalize (stack sizing, shapes, temporaries) ->
		emit code and address literals ->
Program ->
	NewContext ->
vm.Context ->
	Execute (every cycle)

*/
package compiler
