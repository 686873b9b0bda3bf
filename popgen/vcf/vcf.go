// Package vcf bridges the population store and the single-sample VCF
// interchange format: import builds master lists and one sample genotype
// from a VCF stream, export renders a store's catalogue or one sample's
// called subset back to VCF text.
package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/genosim/genosim/popgen"
)

// zygosityByGT maps the recognized small-variant genotype encodings to
// store zygosity tags. Anything else (half calls, multi-allelic indices,
// missing genotypes) is silently dropped on import: documented policy,
// not an error path.
var zygosityByGT = map[string]popgen.Zygosity{
	"1|0": popgen.HetCopy0,
	"0|1": popgen.HetCopy1,
	"1|1": popgen.Hom,
	"1/0": popgen.HetCopy0,
	"0/1": popgen.HetCopy1,
	"1/1": popgen.Hom,
}

// gtByZygosity is the export direction. Phased separators round-trip
// copy assignment exactly.
var gtByZygosity = map[popgen.Zygosity]string{
	popgen.HetCopy0: "1|0",
	popgen.HetCopy1: "0|1",
	popgen.Hom:      "1|1",
}

var contigRe = regexp.MustCompile(`##contig=<(.*)>`)

// contigData accumulates one contig's rows during import.
type contigData struct {
	variants []popgen.VariantRecord
	gts      []popgen.Zygosity
}

// ParseResult is the outcome of parsing one single-sample VCF stream.
type ParseResult struct {
	Metadata    popgen.GenomeMetadata
	MasterLists []*popgen.MasterVariantList // one per contig, header order
	Genotypes   []popgen.SampleGenotype     // parallel to MasterLists
	SampleName  string                      // from the header line; empty if absent
	Skipped     int                         // rows dropped by the leniency policy
}

// Parse stream-parses a single-sample VCF. Contigs follow the
// header-declared order; positions convert from 1-indexed to 0-indexed;
// structural-variant rows and unrecognized genotype fields are skipped.
func Parse(r io.Reader) (*ParseResult, error) {
	res := &ParseResult{}
	serialByID := map[string]int{}
	var data []*contigData

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<26)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			if !strings.HasPrefix(line, "##contig") {
				continue
			}
			md, err := parseContigLine(line)
			if err != nil {
				return nil, err
			}
			serialByID[md.SeqID] = len(data)
			res.Metadata = append(res.Metadata, md)
			data = append(data, &contigData{})
		case strings.HasPrefix(line, "#"):
			cells := strings.Fields(line)
			if len(cells) > 9 {
				res.SampleName = cells[9]
			}
		case strings.TrimSpace(line) == "":
			continue
		default:
			if err := parseDataRow(line, serialByID, data, res); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading VCF: %w", err)
	}

	for _, d := range data {
		ml, gt := assembleContig(d)
		res.MasterLists = append(res.MasterLists, ml)
		res.Genotypes = append(res.Genotypes, gt)
	}
	return res, nil
}

func parseContigLine(line string) (popgen.SequenceMetadata, error) {
	m := contigRe.FindStringSubmatch(line)
	if m == nil {
		return popgen.SequenceMetadata{}, fmt.Errorf("malformed contig header: %s", line)
	}
	md := popgen.SequenceMetadata{}
	for _, field := range strings.Split(m[1], ",") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ID":
			md.SeqID = kv[1]
		case "length":
			n, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return md, fmt.Errorf("contig %s: bad length %q", md.SeqID, kv[1])
			}
			md.SeqLen = n
		case "md5":
			md.SeqMD5 = kv[1]
		}
	}
	return md, nil
}

func parseDataRow(line string, serialByID map[string]int, data []*contigData, res *ParseResult) error {
	cells := strings.Fields(line)
	if len(cells) < 10 {
		res.Skipped++
		return nil
	}
	serial, ok := serialByID[cells[0]]
	if !ok {
		return fmt.Errorf("data row for undeclared contig %q", cells[0])
	}
	if isStructural(cells) {
		res.Skipped++
		return nil
	}
	gtField := strings.SplitN(cells[9], ":", 2)[0]
	gt, ok := zygosityByGT[gtField]
	if !ok {
		res.Skipped++
		return nil
	}
	pos1, err := strconv.ParseInt(cells[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad POS %q on contig %s", cells[1], cells[0])
	}
	pos := pos1 - 1 // VCF is 1-indexed, the store is 0-indexed
	data[serial].variants = append(data[serial].variants, popgen.VariantRecord{
		Pos:  pos,
		Stop: pos + int64(len(cells[3])),
		Ref:  cells[3],
		Alt:  cells[4],
		P:    1.0,
	})
	data[serial].gts = append(data[serial].gts, gt)
	return nil
}

// isStructural flags rows describing structural variants: symbolic or
// breakend ALT alleles, or an SVTYPE INFO key.
func isStructural(cells []string) bool {
	alt := cells[4]
	if strings.HasPrefix(alt, "<") || strings.ContainsAny(alt, "[]") {
		return true
	}
	info := cells[7]
	return strings.HasPrefix(info, "SVTYPE=") || strings.Contains(info, ";SVTYPE=")
}

// assembleContig sorts one contig's accepted rows by position (stable)
// and emits the master list plus the sample genotype referencing it.
func assembleContig(d *contigData) (*popgen.MasterVariantList, popgen.SampleGenotype) {
	order := make([]int, len(d.variants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return d.variants[order[a]].Pos < d.variants[order[b]].Pos
	})

	ml := &popgen.MasterVariantList{}
	gt := make(popgen.SampleGenotype, 0, len(order))
	for idx, rowIdx := range order {
		ml.Variants = append(ml.Variants, d.variants[rowIdx])
		gt = append(gt, popgen.GenotypeEntry{Index: int64(idx), GT: d.gts[rowIdx]})
	}
	return ml, gt
}

// ImportFile reads a VCF file (gzipped when the path ends in .gz) into a
// new population store. sampleName overrides the header sample name;
// "s1" is the fallback when both are absent.
func ImportFile(vcfPath string, opts popgen.StoreOptions, sampleName string) (*popgen.Population, error) {
	f, err := os.Open(vcfPath)
	if err != nil {
		return nil, fmt.Errorf("opening VCF: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(vcfPath, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzipped VCF: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	res, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if sampleName == "" {
		sampleName = res.SampleName
	}
	if sampleName == "" {
		sampleName = "s1"
	}
	if res.Skipped > 0 {
		logrus.Debugf("VCF import: skipped %d structural or unrecognized-genotype rows", res.Skipped)
	}

	opts.Writable = true
	opts.Metadata = res.Metadata
	pop, err := popgen.OpenPopulation(opts)
	if err != nil {
		return nil, err
	}
	for n, ml := range res.MasterLists {
		chrom := n + 1
		if err := pop.SetMasterList(chrom, ml); err != nil {
			return nil, err
		}
		if err := pop.AddSampleChromosome(chrom, sampleName, res.Genotypes[n]); err != nil {
			return nil, err
		}
	}
	return pop, nil
}

// Export streams a store as single-sample VCF text: the full catalogue
// when sampleName is empty (rendered homozygous), else only that
// sample's called subset with its zygosity encoding.
func Export(pop *popgen.Population, sampleName string, w io.Writer) error {
	bw := bufio.NewWriter(w)
	meta := pop.Metadata()

	fmt.Fprintln(bw, "##fileformat=VCFv4.1")
	for _, md := range meta {
		if md.SeqMD5 != "" {
			fmt.Fprintf(bw, "##contig=<ID=%s,length=%d,md5=%s>\n", md.SeqID, md.SeqLen, md.SeqMD5)
		} else {
			fmt.Fprintf(bw, "##contig=<ID=%s,length=%d>\n", md.SeqID, md.SeqLen)
		}
	}
	column := sampleName
	if column == "" {
		column = "master"
	}
	fmt.Fprintf(bw, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t%s\n", column)

	for chrom := 1; chrom <= len(meta); chrom++ {
		seqID := meta[chrom-1].SeqID
		if sampleName == "" {
			ml, err := pop.GetVariantMasterList(chrom)
			if err != nil {
				return err
			}
			for _, v := range ml.Variants {
				writeRow(bw, seqID, v, "1|1")
			}
			continue
		}
		variants, zyg, err := pop.GetSampleVariantListForChromosome(chrom, sampleName, false)
		if err != nil {
			continue // sample has no calls on this chromosome
		}
		for i, v := range variants {
			writeRow(bw, seqID, v, gtByZygosity[zyg[i]])
		}
	}
	return bw.Flush()
}

// ExportFile writes Export output to a path, gzipped when it ends in
// .gz.
func ExportFile(pop *popgen.Population, sampleName, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating VCF: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := Export(pop, sampleName, gz); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}
	return Export(pop, sampleName, f)
}

func writeRow(w io.Writer, seqID string, v popgen.VariantRecord, gt string) {
	// Store positions are 0-indexed; VCF is 1-indexed.
	fmt.Fprintf(w, "%s\t%d\t.\t%s\t%s\t100\tPASS\t.\tGT\t%s\n", seqID, v.Pos+1, v.Ref, v.Alt, gt)
}
