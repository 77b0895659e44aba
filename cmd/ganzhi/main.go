// Command ganzhi prints four pillar charts, lunar dates and solar terms, and
// checks reference fixture files.
package main

import "github.com/zapponejosh/ganzhi-api/internal/cli"

func main() {
	cli.Execute()
}
