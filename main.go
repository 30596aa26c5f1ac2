/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/kooshamoradpour/G5-TechStore/cmd"

func main() {
	cmd.Execute()
}
