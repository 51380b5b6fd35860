// Package dialog turns a host UI tree into a classified dialog snapshot.
package dialog
