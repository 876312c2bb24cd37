package vehicletrack

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the class labels the detector model was trained on from
// the given text file.  It should contain one label per line, line number
// corresponding to class ID.
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening labels file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	// blank lines are kept so line numbers keep matching class IDs
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading labels file: %w", err)
	}

	return labels, nil
}

// ClassName returns the label for the given class ID, or a numeric
// placeholder when the ID is outside the label list
func ClassName(labels []string, classID int) string {

	if classID < 0 || classID >= len(labels) {
		return fmt.Sprintf("class %d", classID)
	}

	return labels[classID]
}
