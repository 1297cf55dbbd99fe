// Package repl implements the interactive terminal workbench: a
// readline-driven prompt over the command catalogue, workflow runner,
// and plugin host, with tab completion, in-flight spinners, and a
// background drain of the ambient log channel.
package repl
