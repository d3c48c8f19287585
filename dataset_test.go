// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bytes"
	"os"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type datasetSuite struct{}

var _ = check.Suite(&datasetSuite{})

func (s *datasetSuite) TestRoundtrip(c *check.C) {
	cohort := &Cohort{
		Name:    "BRCA",
		Samples: []string{"s1", "s2"},
		Genes:   []string{"g1", "g2", "g3"},
		Expr:    []float64{1, 2, 3, 4, 5, 6},
		Time:    []float64{10, 20},
		Status:  []bool{true, false},
	}
	for _, gz := range []bool{false, true} {
		var buf bytes.Buffer
		c.Assert(WriteCohort(&buf, cohort, gz), check.IsNil)
		got, err := ReadCohort(&buf, gz)
		c.Assert(err, check.IsNil)
		c.Check(got, check.DeepEquals, cohort)
	}
}

func (s *datasetSuite) TestCheck(c *check.C) {
	cohort := &Cohort{
		Samples: []string{"s1", "s1"},
		Genes:   []string{"g1"},
		Expr:    []float64{1, 2},
		Time:    []float64{1, 2},
		Status:  []bool{true, false},
	}
	c.Check(cohort.Check(), check.ErrorMatches, `duplicate sample "s1"`)

	cohort.Samples = []string{"s1", "s2"}
	c.Check(cohort.Check(), check.IsNil)

	cohort.Time[1] = -1
	c.Check(cohort.Check(), check.ErrorMatches, `sample "s2" has negative survival time -1`)

	cohort.Time[1] = 2
	cohort.Expr = []float64{1}
	c.Check(cohort.Check(), check.ErrorMatches, `expression matrix has 1 entries.*`)
}

func (s *datasetSuite) TestSubsetKeepGenes(c *check.C) {
	cohort := &Cohort{
		Samples: []string{"s1", "s2", "s3"},
		Genes:   []string{"g1", "g2"},
		Expr:    []float64{1, 2, 3, 4, 5, 6},
		Time:    []float64{1, 2, 3},
		Status:  []bool{true, false, true},
	}
	sub := cohort.Subset([]int{2, 0})
	c.Check(sub.Samples, check.DeepEquals, []string{"s3", "s1"})
	c.Check(sub.Expr, check.DeepEquals, []float64{5, 6, 1, 2})
	c.Check(sub.Time, check.DeepEquals, []float64{3, 1})
	c.Check(sub.Status, check.DeepEquals, []bool{true, true})
	c.Check(sub.Check(), check.IsNil)

	cohort.KeepGenes([]int{1})
	c.Check(cohort.Genes, check.DeepEquals, []string{"g2"})
	c.Check(cohort.Expr, check.DeepEquals, []float64{2, 4, 6})
	c.Check(cohort.Check(), check.IsNil)
}

func (s *datasetSuite) TestImportPipeline(c *check.C) {
	tmpdir := c.MkDir()

	err := os.WriteFile(tmpdir+"/expr.tsv", []byte(""+
		"gene\tsampleA\tsampleB\tsampleC\n"+
		"ENSG01\t1\t2\t3\n"+
		"ENSG02\t4\t5\t6\n"), 0644)
	c.Assert(err, check.IsNil)
	err = os.WriteFile(tmpdir+"/survival.tsv", []byte(""+
		"sample\ttime\tstatus\n"+
		"sampleA\t100\t1\n"+
		"sampleB\t200\t0\n"+
		"sampleC\t50\tdead\n"), 0644)
	c.Assert(err, check.IsNil)

	exited := (&importer{}).RunCommand("import", []string{
		"-expression", tmpdir + "/expr.tsv",
		"-survival", tmpdir + "/survival.tsv",
		"-cohort", "TEST",
		"-o", tmpdir + "/cohort.gob.gz",
	}, &bytes.Buffer{}, os.Stderr, os.Stderr)
	c.Assert(exited, check.Equals, 0)

	f, err := os.Open(tmpdir + "/cohort.gob.gz")
	c.Assert(err, check.IsNil)
	defer f.Close()
	cohort, err := ReadCohort(f, true)
	c.Assert(err, check.IsNil)
	c.Check(cohort.Name, check.Equals, "TEST")
	c.Check(cohort.Samples, check.DeepEquals, []string{"sampleA", "sampleB", "sampleC"})
	c.Check(cohort.Genes, check.DeepEquals, []string{"ENSG01", "ENSG02"})
	// sample-major layout
	c.Check(cohort.Expr, check.DeepEquals, []float64{1, 4, 2, 5, 3, 6})
	c.Check(cohort.Time, check.DeepEquals, []float64{100, 200, 50})
	c.Check(cohort.Status, check.DeepEquals, []bool{true, false, true})

	exited = (&exportNumpy{}).RunCommand("export-numpy", []string{
		"-i", tmpdir + "/cohort.gob.gz",
		"-output-dir", tmpdir,
	}, &bytes.Buffer{}, os.Stderr, os.Stderr)
	c.Assert(exited, check.Equals, 0)

	npyf, err := os.Open(tmpdir + "/matrix.npy")
	c.Assert(err, check.IsNil)
	defer npyf.Close()
	npy, err := gonpy.NewReader(npyf)
	c.Assert(err, check.IsNil)
	matrix, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Check(matrix, check.DeepEquals, []float64{1, 4, 2, 5, 3, 6})

	genes, err := os.ReadFile(tmpdir + "/genes.csv")
	c.Assert(err, check.IsNil)
	c.Check(string(genes), check.Equals, "0,ENSG01\n1,ENSG02\n")
}

func (s *datasetSuite) TestImportMissingSurvival(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/expr.tsv", []byte("gene\tsampleA\nENSG01\t1\n"), 0644)
	c.Assert(err, check.IsNil)
	err = os.WriteFile(tmpdir+"/survival.tsv", []byte("other\t1\t1\n"), 0644)
	c.Assert(err, check.IsNil)

	var stderr bytes.Buffer
	exited := (&importer{}).RunCommand("import", []string{
		"-expression", tmpdir + "/expr.tsv",
		"-survival", tmpdir + "/survival.tsv",
		"-o", tmpdir + "/cohort.gob",
	}, &bytes.Buffer{}, os.Stderr, &stderr)
	c.Check(exited, check.Equals, 1)
	c.Check(stderr.String(), check.Matches, `(?ms).*no survival data for sample "sampleA".*`)
}
