// Package executor locates dialog controls and performs input through a ports.Controls.
package executor
