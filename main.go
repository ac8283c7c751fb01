/*
Copyright © 2025 The taxsieve authors
*/
package main

import "github.com/taxsieve/taxsieve/cmd"

func main() {
	cmd.Execute()
}
