package iocli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

type Stdio struct {
	in *bufio.Reader
}

// NewStdio wires the IO abstraction to the real terminal.
func NewStdio() IO {
	// Reader общий на все вызовы, иначе буферизованный ввод терялся бы между ними
	return &Stdio{in: bufio.NewReader(os.Stdin)}
}

func (s *Stdio) Println(a ...any) {
	fmt.Println(a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// Confirm задает вопрос да/нет, пустой ответ считается отказом
func (s *Stdio) Confirm(prompt string) (bool, error) {
	answer, err := s.ReadInput(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "yes" || answer == "y", nil
}

func (s *Stdio) Write(p []byte) (n int, err error) {
	return os.Stdout.Write(p)
}
