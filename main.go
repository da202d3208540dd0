package main

import "github.com/SAP-F-2025/exam-engine/internal/cli"

func main() {
	cli.Execute()
}
