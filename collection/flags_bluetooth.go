//go:build !darwin

package main

import "flag"

var bluetoothMAC = flag.String("bluetooth-mac", "", "bluetooth MAC address of radiacode device (e.g. 00:11:22:33:44:55)")
