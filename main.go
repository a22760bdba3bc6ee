package main

import "github.com/frahmantamala/gameserver-admin/cmd"

func main() {
	cmd.Execute()
}
