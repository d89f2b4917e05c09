//go:build darwin

package main

// Bluetooth is not available on macOS, the device is always reached over USB.
var bluetoothMAC = new(string)
