/*
Package compiler turns C source into 32 bit x86 assembly.

Process of compilation

	Program Text ->
		lex, parse ->
	Abstract Syntax Tree (ast) with resolved symbols (tp) ->
		front: control flow graph, quads ->
	Intermediate Representation (ir) ->
		back ->
	Assembly Text (AT&T syntax)

Each step is a package of its own. Options.Stop ends the pipeline early,
Options.AST and Options.IR receive dumps of the intermediate forms.

Errors are *diag.Error values carrying a diag.Code. The first one stops compilation.
*/
package compiler
