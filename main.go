package main

func main() {
	// console flags
	InitFlag()
	// safe exit hooks
	InitSafeExit()
	// configuration
	InitConf(configPath)
	// logging
	InitLog()
	// tile pipeline
	InitTask()
}
