package data

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// LoadDataset reads tiles from a root/<fold>/<label>/<tile> tree. Fold
// directories and tile files are sorted so the fold order and sample order
// are stable across runs. Label directories must be positive integers; they
// are the class labels as-is.
func LoadDataset(root string, channels int) (*Dataset, error) {
	folds, err := listDirs(root)
	if err != nil {
		return nil, err
	}
	if len(folds) == 0 {
		return nil, errors.Wrapf(ErrEmptyDataset, "no fold directories under %s", root)
	}

	ds := NewDataset()
	for _, fold := range folds {
		labelDirs, err := listDirs(filepath.Join(root, fold))
		if err != nil {
			return nil, err
		}
		for _, labelDir := range labelDirs {
			label, err := strconv.Atoi(labelDir)
			if err != nil || label < 1 {
				return nil, errors.Errorf("label directory %q under fold %q is not a positive integer", labelDir, fold)
			}
			dir := filepath.Join(root, fold, labelDir)
			files, err := listFiles(dir)
			if err != nil {
				return nil, err
			}
			for _, file := range files {
				s, err := readTile(filepath.Join(dir, file), channels, label)
				if err != nil {
					return nil, errors.Wrapf(err, "fold %q", fold)
				}
				ds.Add(fold, s)
			}
		}
	}
	return ds, nil
}

func readTile(path string, channels, label int) (Sample, error) {
	flag := gocv.IMReadGrayScale
	if channels == 3 {
		flag = gocv.IMReadColor
	}
	img := gocv.IMRead(path, flag)
	if img.Empty() {
		return Sample{}, errors.Errorf("cannot decode tile %s", path)
	}
	defer img.Close()

	rows, cols := img.Rows(), img.Cols()
	shape := Shape{Channels: channels, Height: rows, Width: cols}
	x := make([]float32, shape.Elems())

	// Channel-major layout, pixel values scaled to [0,1].
	if channels == 1 {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				x[r*cols+c] = float32(img.GetUCharAt(r, c)) / 255.0
			}
		}
	} else {
		plane := rows * cols
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				px := img.GetVecbAt(r, c)
				for ch := 0; ch < channels; ch++ {
					x[ch*plane+r*cols+c] = float32(px[ch]) / 255.0
				}
			}
		}
	}
	return Sample{X: x, Shape: shape, Label: label}, nil
}

func listDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", root)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
