package main

import "whereyou-backend/cmd"

func main() {
	cmd.Run()
}
