package main

import "github.com/wolfxweb/meli-mentor-suite-sub000/internal/cli"

func main() {
	cli.Execute()
}
