package logging

import (
	"log"
	"os"
)

func New() *log.Logger {
	return log.New(os.Stdout, "intelguard-controller ", log.LstdFlags|log.LUTC)
}
