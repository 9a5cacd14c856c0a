// Command users-admin is the admin console for a remote users collection.
//
// It serves the admin screen to browsers and offers the same actions on
// the command line:
//
//	users-admin serve --config=config/local.yaml
//	users-admin list --page 2
//	users-admin create --name Ann --email ann@example.com
//	users-admin update 7 --email ann@example.org
//	users-admin delete 7
//
// The config file may also be given with CONFIG_PATH.
package main

func main() {
	Execute()
}
