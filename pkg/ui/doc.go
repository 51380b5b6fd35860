/*
Package ui models the host's UI tree as seen by the automation.

Node is the minimal read surface every host provides. Element is a concrete
implementation decoded from Android `uiautomator dump` XML, used by the adb host,
the simulated host and tests.
*/
package ui
