package main

import "github.com/kozaktomas/class-attendance/cmd"

func main() {
	cmd.Execute()
}
