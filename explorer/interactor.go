package explorer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeu5/snake-rl/types"
)

// Interact runs the main interactive loop until the user quits or in is exhausted
func (e *Explorer) Interact(ctx context.Context, in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "%s", e.header())
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s", e.prompt())

		optionS, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		option, err := strconv.Atoi(strings.TrimSpace(optionS))
		if err != nil {
			fmt.Fprintln(out, "Invalid input! Try again")
			continue
		}
		fmt.Fprintln(out, "------------------------------------")
		switch option {
		case 1:
			fmt.Fprintf(out, "%s", e.listStates(ctx))
		case 2:
			fmt.Fprintf(out, "Enter the state key: ")
			stateK, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			fmt.Fprintf(out, "%s", e.showState(ctx, strings.TrimSpace(stateK)))
		case 3:
			trace, err := e.Play(ctx, 0)
			if err != nil {
				fmt.Fprintf(out, "Could not play: %s\n", err)
				continue
			}
			e.interactTrace(ctx, trace, reader, out)
		case 4:
			fmt.Fprintln(out, "Quitting! Thank you")
			return
		default:
			fmt.Fprintln(out, "Wrong choice! Try again!")
		}
	}
}

func (e *Explorer) listStates(ctx context.Context) string {
	states, err := e.States(ctx)
	if err != nil {
		return fmt.Sprintf("Could not read states: %s\n", err)
	}
	out := fmt.Sprintf("%d states are:\n", len(states))
	for _, s := range states {
		out += s.Key() + "\n"
	}
	return out
}

func (e *Explorer) showState(ctx context.Context, key string) string {
	state, err := types.ParseState(key)
	if err != nil {
		return fmt.Sprintf("Invalid state key: %s\n", err)
	}
	view, err := e.View(ctx, state)
	if err != nil {
		return fmt.Sprintf("Could not read state: %s\n", err)
	}
	return view.String()
}

func (e *Explorer) header() string {
	return `
Welcome to the memory explorer!
	`
}

func (e *Explorer) prompt() string {
	return `
------------------------------------
Select one of the following options:
1. List states
2. Show weights of a state
3. Play an episode
4. Quit
Enter your choice: `
}

func (e *Explorer) tracePrompt() string {
	return `
---------------------------------------------
Step(s) Weights(d) Prev(p) Last(l) Quit(q): `
}

func (e *Explorer) interactTrace(ctx context.Context, trace *Trace, reader *bufio.Reader, out io.Writer) {
	stepCount := 0
	if trace.Len() == 0 {
		fmt.Fprintln(out, "Empty trace!")
		return
	}
	fmt.Fprintf(out, "Episode of %d steps with score %d\n", trace.Len(), trace.Score)
	fmt.Fprintln(out, "---------------------------------------------")
	for {
		step, _ := trace.Get(stepCount)
		fmt.Fprintf(out, "For step %d\n%s", stepCount+1, step)
		fmt.Fprintf(out, "%s", e.tracePrompt())
		optionS, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fmt.Fprintln(out, "---------------------------------------------")
		switch strings.TrimSpace(optionS) {
		case "s":
			if stepCount == trace.Len()-1 {
				fmt.Fprintln(out, "No more steps!")
				continue
			}
			stepCount += 1
		case "d":
			fmt.Fprintf(out, "%s", e.showState(ctx, step.Transition.State.Key()))
		case "p":
			if stepCount == 0 {
				fmt.Fprintln(out, "No more steps!")
				continue
			}
			stepCount -= 1
		case "l":
			stepCount = trace.Len() - 1
		case "q":
			return
		default:
			fmt.Fprintln(out, "Invalid option! Try again.")
		}
	}
}
