package fixtures

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// Header is the column layout of a mortality CSV
var Header = []string{"mortalidad", "numero_pacientes"}

// Causes are realistic labels for generated rows
var Causes = []string{
	"Heart disease",
	"Cancer",
	"Stroke",
	"Pneumonia",
	"Sepsis",
	"Kidney failure",
	"Diabetes",
	"Cirrhosis",
	"Trauma",
	"COVID-19",
}

// Generator writes mortality CSV files into a directory
type Generator struct {
	outputDir string
	rand      *rand.Rand
}

// NewGenerator creates a generator; the seed makes output reproducible
func NewGenerator(outputDir string, seed int64) *Generator {
	return &Generator{
		outputDir: outputDir,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

// Write writes header and rows verbatim
func (g *Generator) Write(filename string, header []string, rows [][]string) (string, error) {
	path := filepath.Join(g.outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if header != nil {
		if err := writer.Write(header); err != nil {
			return "", err
		}
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}

	return path, nil
}

// GenerateSample writes the three-row example: Heart 150, Cancer 300 and
// Flu with an empty count.
func (g *Generator) GenerateSample(filename string) (string, error) {
	return g.Write(filename, Header, [][]string{
		{"Heart", "150"},
		{"Cancer", "300"},
		{"Flu", ""},
	})
}

// GenerateValid writes rows valid rows with random counts
func (g *Generator) GenerateValid(filename string, rows int) (string, error) {
	records := make([][]string, rows)
	for i := range records {
		records[i] = []string{g.cause(i), fmt.Sprintf("%d", g.rand.Intn(1000))}
	}
	return g.Write(filename, Header, records)
}

// GenerateWithInvalid writes rows of which roughly invalidRate are
// rejected by validation. It returns how many rows are valid.
func (g *Generator) GenerateWithInvalid(filename string, rows int, invalidRate float64) (string, int, error) {
	records := make([][]string, rows)
	valid := 0

	for i := range records {
		if g.rand.Float64() >= invalidRate {
			records[i] = []string{g.cause(i), fmt.Sprintf("%d", g.rand.Intn(1000))}
			valid++
			continue
		}

		switch g.rand.Intn(4) {
		case 0: // Empty count
			records[i] = []string{g.cause(i), ""}
		case 1: // Non-numeric count
			records[i] = []string{g.cause(i), "n/a"}
		case 2: // Empty label
			records[i] = []string{"", fmt.Sprintf("%d", g.rand.Intn(1000))}
		case 3: // Short row, count missing
			records[i] = []string{g.cause(i)}
		}
	}

	path, err := g.Write(filename, Header, records)
	return path, valid, err
}

// GenerateEmpty writes a zero-byte file
func (g *Generator) GenerateEmpty(filename string) (string, error) {
	path := filepath.Join(g.outputDir, filename)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// GenerateHeaderOnly writes a file with only the header row
func (g *Generator) GenerateHeaderOnly(filename string) (string, error) {
	return g.Write(filename, Header, nil)
}

// cause picks a label; the index suffix keeps labels distinct past len(Causes)
func (g *Generator) cause(i int) string {
	base := Causes[g.rand.Intn(len(Causes))]
	if i < len(Causes) {
		return base
	}
	return fmt.Sprintf("%s %d", base, i)
}

// CleanupFiles removes generated files
func CleanupFiles(files ...string) error {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
