package snake

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

// Cell values as seen by the agent
const (
	Unknown = -1
	Empty   = 0
	Wall    = 1
	Body    = 2
	Goal    = 4
)

var (
	DefaultPosition  = Vector{0, 0}
	DefaultDirection = Vector{1, 0}
)

const DefaultLength = 3

type snakeFile struct {
	Position  *[2]int `json:"position"`
	Direction *[2]int `json:"direction"`
	Length    *int    `json:"length"`
}

type worldFile struct {
	Size  int        `json:"size"`
	Data  [][]int    `json:"data"`
	Snake *snakeFile `json:"snake"`
}

// World is a square grid holding walls, the snake and a single goal.
// Grid cells are addressed as grid[x][y].
type World struct {
	Name string

	size int
	grid [][]int

	startPosition  Vector
	startDirection Vector
	startLength    int

	body      []Vector
	direction Vector
	grow      int
	goal      Vector
}

// LoadWorld reads a world file, naming the world after the file
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: world file %s does not exist", types.ErrConfiguration, path)
		}
		return nil, err
	}
	name := filepath.Base(path)
	return ParseWorld(name[:len(name)-len(filepath.Ext(name))], data)
}

func ParseWorld(name string, data []byte) (*World, error) {
	file := worldFile{}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: world %s: %v", types.ErrConfiguration, name, err)
	}
	position, direction, length := DefaultPosition, DefaultDirection, DefaultLength
	if file.Snake != nil {
		if file.Snake.Position != nil {
			position = Vector{file.Snake.Position[0], file.Snake.Position[1]}
		}
		if file.Snake.Direction != nil {
			direction = Vector{file.Snake.Direction[0], file.Snake.Direction[1]}
		}
		if file.Snake.Length != nil {
			length = *file.Snake.Length
		}
	}
	return NewWorld(name, file.Size, file.Data, position, direction, length)
}

// NewWorld validates the layout and the start configuration of the snake
func NewWorld(name string, size int, grid [][]int, position, direction Vector, length int) (*World, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: world %s has size %d", types.ErrConfiguration, name, size)
	}
	if len(grid) != size {
		return nil, fmt.Errorf("%w: world %s has %d columns, expected %d", types.ErrConfiguration, name, len(grid), size)
	}
	copied := make([][]int, size)
	for x, column := range grid {
		if len(column) != size {
			return nil, fmt.Errorf("%w: world %s column %d has %d cells, expected %d", types.ErrConfiguration, name, x, len(column), size)
		}
		for y, v := range column {
			if v != Empty && v != Wall {
				return nil, fmt.Errorf("%w: world %s cell (%d, %d) has value %d", types.ErrConfiguration, name, x, y, v)
			}
		}
		copied[x] = append([]int(nil), column...)
	}
	w := &World{
		Name:           name,
		size:           size,
		grid:           copied,
		startPosition:  position,
		startDirection: direction,
		startLength:    length,
	}
	if !w.inBounds(position) || w.grid[position.X][position.Y] != Empty {
		return nil, fmt.Errorf("%w: world %s snake starts on %s which is not an empty cell", types.ErrConfiguration, name, position)
	}
	if !direction.IsDirection() {
		return nil, fmt.Errorf("%w: world %s snake direction %s is not a unit direction", types.ErrConfiguration, name, direction)
	}
	if length < 1 {
		return nil, fmt.Errorf("%w: world %s snake length %d", types.ErrConfiguration, name, length)
	}
	if w.FreeCells() <= length {
		return nil, fmt.Errorf("%w: world %s has no room for the snake to grow", types.ErrConfiguration, name)
	}
	w.resetSnake()
	return w, nil
}

func (w *World) Size() int {
	return w.size
}

func (w *World) inBounds(p Vector) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.size && p.Y < w.size
}

// Cell returns what occupies p. The snake hides the goal which hides the grid.
func (w *World) Cell(p Vector) int {
	for _, part := range w.body {
		if part == p {
			return Body
		}
	}
	if !w.inBounds(p) {
		return Unknown
	}
	if p == w.goal {
		return Goal
	}
	return w.grid[p.X][p.Y]
}

// FreeCells counts the grid cells without walls
func (w *World) FreeCells() int {
	free := 0
	for _, column := range w.grid {
		for _, v := range column {
			if v == Empty {
				free++
			}
		}
	}
	return free
}

func (w *World) StartLength() int {
	return w.startLength
}

func (w *World) Head() Vector {
	return w.body[0]
}

func (w *World) Direction() Vector {
	return w.direction
}

// Body returns a copy of the snake, head first
func (w *World) Body() []Vector {
	return append([]Vector(nil), w.body...)
}

func (w *World) Goal() Vector {
	return w.goal
}

func (w *World) resetSnake() {
	w.body = []Vector{w.startPosition}
	w.direction = w.startDirection
	w.grow = w.startLength - 1
}

// Reset puts the snake back at its start and places a new goal
func (w *World) Reset(rng *rand.Rand) bool {
	w.resetSnake()
	return w.PlaceGoal(rng)
}

// PlaceGoal moves the goal to a uniformly chosen empty cell.
// It returns false when every free cell is taken by the snake.
func (w *World) PlaceGoal(rng *rand.Rand) bool {
	w.goal = Vector{-1, -1}
	empty := make([]Vector, 0)
	for x := 0; x < w.size; x++ {
		for y := 0; y < w.size; y++ {
			p := Vector{x, y}
			if w.Cell(p) == Empty {
				empty = append(empty, p)
			}
		}
	}
	if len(empty) == 0 {
		return false
	}
	w.goal = empty[rng.Intn(len(empty))]
	return true
}

// Turn rotates the heading by quarters of +90 degrees
func (w *World) Turn(quarters int) {
	w.direction = w.direction.Rotated(quarters)
}

// Advance moves the head one cell forward, consuming a growth credit when there is one
func (w *World) Advance() {
	head := w.body[0].Add(w.direction)
	if w.grow > 0 {
		w.grow--
		w.body = append([]Vector{head}, w.body...)
		return
	}
	copy(w.body[1:], w.body[:len(w.body)-1])
	w.body[0] = head
}

// Grow grants one growth credit
func (w *World) Grow() {
	w.grow++
}

// Colliding reports if the head left the grid, hit a wall or hit the body
func (w *World) Colliding() bool {
	head := w.body[0]
	if !w.inBounds(head) || w.grid[head.X][head.Y] == Wall {
		return true
	}
	for _, part := range w.body[1:] {
		if part == head {
			return true
		}
	}
	return false
}

// Raycast walks from p in direction dir until reaching the goal, the body, a wall or leaving the grid
func (w *World) Raycast(p, dir Vector) (int, Vector) {
	ray := p.Add(dir)
	for {
		switch kind := w.Cell(ray); kind {
		case Goal, Body, Wall, Unknown:
			return kind, ray
		}
		ray = ray.Add(dir)
	}
}
