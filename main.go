package main

import "github.com/evolin-labs/auth-service/cmd"

func main() {
	cmd.Execute()
}
