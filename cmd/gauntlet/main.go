// gauntlet — adversarial testing harness for AI agent guardrails.
// Red agents generate attacks, blue agents detect them, and a sandboxed
// target takes the hits. Missed attacks become catalogued vectors and
// draft detection rules.
package main

import "github.com/vorion-labs/gauntlet/internal/cli"

func main() {
	cli.Execute()
}
