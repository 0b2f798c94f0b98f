package ledger

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

// Optional 区分字段未出现与出现但为零值/null。
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o Optional[T]) applyTo(dst *T) bool {
	if o.Set {
		*dst = o.Value
	}
	return o.Set
}

type OverviewPatch struct {
	Name            Optional[*string]
	Email           Optional[*string]
	ResumeURL       Optional[*string]
	Summary         Optional[*string]
	PreferredDomain Optional[*string]
	YearOfStudy     Optional[*string]
}

type PerformancePatch struct {
	Score   Optional[*float64]
	Level   Optional[*string]
	Summary Optional[*string]
}

type SectionPatch struct {
	Score    Optional[*float64]
	Feedback Optional[*string]
}

type RecommendationPatch struct {
	Decision      Optional[*string]
	Justification Optional[*string]
}

// ReportPatch 评估服务返回的报告片段，只有出现的字段会被写入。
type ReportPatch struct {
	Overview       *OverviewPatch
	Performance    *PerformancePatch
	Strengths      Optional[[]string]
	Weaknesses     Optional[[]string]
	Sections       map[string]*SectionPatch
	Recommendation *RecommendationPatch
}

const (
	SectionGeneral   = "general"
	SectionHR        = "hr"
	SectionTechnical = "technical"
)

// 顶层字段别名，key 为去掉下划线与连字符后的小写形式。
var topLevelAliases = map[string]string{
	"candidateoverview":     "overview",
	"overview":              "overview",
	"overallperformance":    "performance",
	"performance":           "performance",
	"overallscore":          "score",
	"strengths":             "strengths",
	"weaknesses":            "weaknesses",
	"improvements":          "weaknesses",
	"areasforimprovement":   "weaknesses",
	"evaluation":            "evaluation",
	"sectionwiseevaluation": "evaluation",
	"sectionevaluation":     "evaluation",
	"finalrecommendation":   "recommendation",
	"recommendation":        "recommendation",
}

// ParseReportPatch 解析评估服务的报告，接受 final_report 包装，section 名不区分大小写，
// 顶层的 "overall_performance.score" 这类带点的字段会被归入对应子文档。
func ParseReportPatch(raw []byte) (*ReportPatch, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.Validation("report payload must be valid json")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, errors.Validation("report payload must be a json object")
	}
	for _, wrapper := range []string{"final_report", "finalReport"} {
		if inner := root.Get(wrapper); inner.IsObject() {
			root = inner
			break
		}
	}
	patch := &ReportPatch{}
	if err := forEach(root, patch.assign); err != nil {
		return nil, err
	}
	return patch, nil
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

func splitKey(key string) []string {
	parts := strings.Split(key, ".")
	for i := range parts {
		parts[i] = normalizeKey(parts[i])
	}
	return parts
}

// forEach 对对象的每个字段调用 fn，字段名按 "." 拆分。
func forEach(obj gjson.Result, fn func(path []string, v gjson.Result) error) error {
	var err error
	obj.ForEach(func(k, v gjson.Result) bool {
		err = fn(splitKey(k.String()), v)
		return err == nil
	})
	return err
}

func (p *ReportPatch) assign(path []string, v gjson.Result) error {
	switch topLevelAliases[path[0]] {
	case "overview":
		return p.assignOverview(path[1:], v)
	case "performance":
		return p.assignPerformance(path[1:], v)
	case "score":
		if len(path) > 1 {
			return nil
		}
		return p.assignPerformance([]string{"score"}, v)
	case "strengths":
		if len(path) > 1 {
			return nil
		}
		return setList(&p.Strengths, v, "strengths")
	case "weaknesses":
		if len(path) > 1 {
			return nil
		}
		return setList(&p.Weaknesses, v, "weaknesses")
	case "evaluation":
		return p.assignEvaluation(path[1:], v)
	case "recommendation":
		return p.assignRecommendation(path[1:], v)
	}
	return nil
}

// subdocument 为空路径时展开对象，null 视为未出现。
func subdocument(path []string, v gjson.Result, name string, fn func(path []string, v gjson.Result) error) (bool, error) {
	if len(path) > 0 {
		return false, nil
	}
	if v.Type == gjson.Null {
		return true, nil
	}
	if !v.IsObject() {
		return true, errors.Validation(name + " must be an object")
	}
	return true, forEach(v, fn)
}

func (p *ReportPatch) assignOverview(path []string, v gjson.Result) error {
	if done, err := subdocument(path, v, "candidate_overview", p.assignOverview); done {
		return err
	}
	if len(path) != 1 {
		return nil
	}
	switch path[0] {
	case "name":
		return setString(&p.overview().Name, v, "candidate_overview.name")
	case "email":
		return setString(&p.overview().Email, v, "candidate_overview.email")
	case "resumeurl":
		return setString(&p.overview().ResumeURL, v, "candidate_overview.resume_url")
	case "summary":
		return setString(&p.overview().Summary, v, "candidate_overview.summary")
	case "preferreddomain":
		return setString(&p.overview().PreferredDomain, v, "candidate_overview.preferred_domain")
	case "yearofstudy":
		return setString(&p.overview().YearOfStudy, v, "candidate_overview.year_of_study")
	}
	return nil
}

func (p *ReportPatch) assignPerformance(path []string, v gjson.Result) error {
	if done, err := subdocument(path, v, "overall_performance", p.assignPerformance); done {
		return err
	}
	if len(path) != 1 {
		return nil
	}
	switch path[0] {
	case "score":
		return setNumber(&p.performance().Score, v, "overall_performance.score")
	case "level":
		return setString(&p.performance().Level, v, "overall_performance.level")
	case "summary", "feedback":
		return setString(&p.performance().Summary, v, "overall_performance.summary")
	}
	return nil
}

func (p *ReportPatch) assignEvaluation(path []string, v gjson.Result) error {
	if done, err := subdocument(path, v, "evaluation", p.assignEvaluation); done {
		return err
	}
	section := path[0]
	switch section {
	case SectionGeneral, SectionHR, SectionTechnical:
	default:
		return nil
	}
	return p.assignSection(section, path[1:], v)
}

func (p *ReportPatch) assignSection(section string, path []string, v gjson.Result) error {
	fn := func(path []string, v gjson.Result) error {
		return p.assignSection(section, path, v)
	}
	if done, err := subdocument(path, v, "evaluation."+section, fn); done {
		return err
	}
	if len(path) != 1 {
		return nil
	}
	switch path[0] {
	case "score":
		return setNumber(&p.section(section).Score, v, "evaluation."+section+".score")
	case "feedback":
		return setString(&p.section(section).Feedback, v, "evaluation."+section+".feedback")
	}
	return nil
}

func (p *ReportPatch) assignRecommendation(path []string, v gjson.Result) error {
	if len(path) == 0 && v.Type == gjson.String {
		// 只给出结论字符串。
		path = []string{"decision"}
	}
	if done, err := subdocument(path, v, "final_recommendation", p.assignRecommendation); done {
		return err
	}
	if len(path) != 1 {
		return nil
	}
	switch path[0] {
	case "decision":
		return setString(&p.recommendation().Decision, v, "final_recommendation.decision")
	case "justification":
		return setString(&p.recommendation().Justification, v, "final_recommendation.justification")
	}
	return nil
}

func (p *ReportPatch) overview() *OverviewPatch {
	if p.Overview == nil {
		p.Overview = &OverviewPatch{}
	}
	return p.Overview
}

func (p *ReportPatch) performance() *PerformancePatch {
	if p.Performance == nil {
		p.Performance = &PerformancePatch{}
	}
	return p.Performance
}

func (p *ReportPatch) section(name string) *SectionPatch {
	if p.Sections == nil {
		p.Sections = map[string]*SectionPatch{}
	}
	s, ok := p.Sections[name]
	if !ok {
		s = &SectionPatch{}
		p.Sections[name] = s
	}
	return s
}

func (p *ReportPatch) recommendation() *RecommendationPatch {
	if p.Recommendation == nil {
		p.Recommendation = &RecommendationPatch{}
	}
	return p.Recommendation
}

func setString(dst *Optional[*string], v gjson.Result, name string) error {
	switch v.Type {
	case gjson.Null:
		*dst = Some[*string](nil)
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		s := v.String()
		*dst = Some(&s)
	default:
		return errors.Validation(name + " must be a string")
	}
	return nil
}

func setNumber(dst *Optional[*float64], v gjson.Result, name string) error {
	switch v.Type {
	case gjson.Null:
		*dst = Some[*float64](nil)
	case gjson.Number:
		f := v.Float()
		*dst = Some(&f)
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return errors.Validation(name + " must be a number")
		}
		*dst = Some(&f)
	default:
		return errors.Validation(name + " must be a number")
	}
	return nil
}

func setList(dst *Optional[[]string], v gjson.Result, name string) error {
	list := []string{}
	switch {
	case v.Type == gjson.Null:
	case v.IsArray():
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				list = append(list, s)
			}
		}
	case v.Type == gjson.String:
		if s := strings.TrimSpace(v.Str); s != "" {
			list = append(list, s)
		}
	default:
		return errors.Validation(name + " must be a list of strings")
	}
	*dst = Some(list)
	return nil
}

// Empty 是否没有任何需要写入的字段。
func (p *ReportPatch) Empty() bool {
	return p.Overview == nil && p.Performance == nil && !p.Strengths.Set && !p.Weaknesses.Set &&
		len(p.Sections) == 0 && p.Recommendation == nil
}

// Apply 将片段合并到当前报告上，返回需要整体替换的子文档。
func (p *ReportPatch) Apply(report *model.EvaluationReportDo) map[string]interface{} {
	fields := map[string]interface{}{}
	if o := p.Overview; o != nil {
		merged := report.CandidateOverview
		changed := o.Name.applyTo(&merged.Name)
		changed = o.Email.applyTo(&merged.Email) || changed
		changed = o.ResumeURL.applyTo(&merged.ResumeURL) || changed
		changed = o.Summary.applyTo(&merged.Summary) || changed
		changed = o.PreferredDomain.applyTo(&merged.PreferredDomain) || changed
		changed = o.YearOfStudy.applyTo(&merged.YearOfStudy) || changed
		if changed {
			fields[dao.ReportFieldCandidateOverview] = merged
		}
	}
	if perf := p.Performance; perf != nil {
		merged := report.OverallPerformance
		changed := perf.Score.applyTo(&merged.Score)
		changed = perf.Level.applyTo(&merged.Level) || changed
		changed = perf.Summary.applyTo(&merged.Summary) || changed
		if changed {
			fields[dao.ReportFieldOverallPerformance] = merged
		}
	}
	if p.Strengths.Set {
		fields[dao.ReportFieldStrengths] = p.Strengths.Value
	}
	if p.Weaknesses.Set {
		fields[dao.ReportFieldWeaknesses] = p.Weaknesses.Value
	}
	if len(p.Sections) > 0 {
		merged := report.Evaluation
		changed := false
		for name, patch := range p.Sections {
			var slot **model.SectionEvaluationDo
			switch name {
			case SectionGeneral:
				slot = &merged.General
			case SectionHR:
				slot = &merged.HR
			case SectionTechnical:
				slot = &merged.Technical
			default:
				continue
			}
			section := model.SectionEvaluationDo{}
			if *slot != nil {
				section = **slot
			}
			sectionChanged := patch.Score.applyTo(&section.Score)
			sectionChanged = patch.Feedback.applyTo(&section.Feedback) || sectionChanged
			if sectionChanged {
				*slot = &section
				changed = true
			}
		}
		if changed {
			fields[dao.ReportFieldEvaluation] = merged
		}
	}
	if r := p.Recommendation; r != nil {
		merged := report.FinalRecommendation
		changed := r.Decision.applyTo(&merged.Decision)
		changed = r.Justification.applyTo(&merged.Justification) || changed
		if changed {
			fields[dao.ReportFieldFinalRecommendation] = merged
		}
	}
	return fields
}
