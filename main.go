package main

import "github.com/yeremiapane/cavalli-app/cmd"

func main() {
	cmd.Execute()
}
