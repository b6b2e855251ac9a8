package main

import "github.com/2003nayan/automated-github-push/cmd"

func main() {
	cmd.Execute()
}
