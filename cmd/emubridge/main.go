// emubridge captures local keyboard and mouse input and delivers it to an
// emulator core, either in process or over UDP.
package main

func main() {
	Execute()
}
