package main

import "github.com/yorozuya-cybersecurity/vulnbrief/pkg/cli"

func main() {
	cli.Execute()
}
