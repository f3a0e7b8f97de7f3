package analysis

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDBSCANLabelsDenseClusterAndNoise(t *testing.T) {
	// Eight points in a tight ball at the origin, two isolated outliers.
	data := mat.NewDense(10, 2, []float64{
		0.0, 0.0,
		0.1, 0.0,
		0.0, 0.1,
		-0.1, 0.0,
		0.0, -0.1,
		0.1, 0.1,
		-0.1, -0.1,
		0.05, 0.05,
		10.0, 10.0,
		-10.0, -10.0,
	})

	labels := dbscanLabels(data, 1.0, 4)

	for i := 0; i < 8; i++ {
		if labels[i] != 0 {
			t.Fatalf("point %d label = %d, want cluster 0", i, labels[i])
		}
	}
	for i := 8; i < 10; i++ {
		if labels[i] != dbscanNoise {
			t.Fatalf("outlier %d label = %d, want noise", i, labels[i])
		}
	}
}

func TestDBSCANLabelsTwoClusters(t *testing.T) {
	data := mat.NewDense(8, 2, []float64{
		0.0, 0.0,
		0.2, 0.0,
		0.0, 0.2,
		0.2, 0.2,
		5.0, 5.0,
		5.2, 5.0,
		5.0, 5.2,
		5.2, 5.2,
	})

	labels := dbscanLabels(data, 0.5, 3)

	first := labels[0]
	second := labels[4]
	if first == dbscanNoise || second == dbscanNoise {
		t.Fatalf("labels = %v, both groups should form clusters", labels)
	}
	if first == second {
		t.Fatalf("labels = %v, groups should be distinct clusters", labels)
	}
	for i := 1; i < 4; i++ {
		if labels[i] != first {
			t.Fatalf("labels = %v, first group split", labels)
		}
	}
	for i := 5; i < 8; i++ {
		if labels[i] != second {
			t.Fatalf("labels = %v, second group split", labels)
		}
	}
}

func TestDBSCANLabelsAllNoiseWhenSparse(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{
		0, 0,
		5, 5,
		-5, 5,
	})

	labels := dbscanLabels(data, 1.0, 2)
	for i, label := range labels {
		if label != dbscanNoise {
			t.Fatalf("point %d label = %d, want noise", i, label)
		}
	}
}
