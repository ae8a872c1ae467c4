package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/phpserial"
	"github.com/wolfslender/Media-Usage-Checker/pkg/storage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

// Meta keys where themes, shops and page builders keep media references.
var richMetaKeys = []string{
	"_thumbnail_id",
	"_product_image_gallery",
	"_elementor_data",
	"_wpb_shortcodes_custom_css",
	"_vc_post_settings",
	"panels_data",
	"_cornerstone_data",
	"_fl_builder_data",
	"_themify_builder_settings_json",
	"_oxygen_builder_data",
	"block_data",
	"thumbnail_id",
	// Another attachment pointing at the same file.
	wordpress.MetaAttachedFile,
}

var richMetaKeyPatterns = []string{
	"_divi_%",
	"_fusion_builder_%",
}

var termIDMetaKeys = []string{"thumbnail_id", "image", "image_id", "logo", "icon"}

var identityOptions = []string{"site_icon", "site_logo"}

var optionNamePatterns = []string{
	"%widget%",
	"theme_mods_%",
	"%sidebars_widgets%",
	"%custom_css%",
	"%background%",
}

// ContentSource is the part of the WordPress store the scanner reads.
type ContentSource interface {
	Uploads() wordpress.Uploads
	GetAttachment(ctx context.Context, id uint64) (*wordpress.Attachment, error)
	ContentReferences(ctx context.Context, contains []string) (*wordpress.Reference, error)
	MetaReferences(ctx context.Context, q wordpress.MetaQuery) (*wordpress.Reference, error)
	TermMetaReferences(ctx context.Context, q wordpress.MetaQuery) (*wordpress.Reference, error)
	OptionReferences(ctx context.Context, q wordpress.OptionQuery) (*wordpress.Reference, error)
	GetOption(ctx context.Context, name string) (string, bool, error)
	EachOption(ctx context.Context, q wordpress.OptionQuery, fn func(wordpress.Option) error) error
}

type Config struct {
	ExtraMetaKeys       []string
	ExtraOptionPatterns []string
}

// Options tune a single check.
type Options struct {
	// Fresh skips the verdict cache. The result is still cached.
	Fresh bool
}

// Scanner decides whether an attachment is referenced anywhere on the site.
type Scanner struct {
	source ContentSource
	cache  VerdictCache
	files  storage.MediaStorage
	logger log.LoggerService

	metaKeys        []string
	metaKeyPatterns []string
	optionPatterns  []string

	now func() time.Time
}

// NewScanner creates a scanner. cache and files may be nil.
func NewScanner(source ContentSource, cache VerdictCache, files storage.MediaStorage, logger log.LoggerService, cfg Config) *Scanner {
	s := &Scanner{
		source: source,
		cache:  cache,
		files:  files,
		logger: logger,
		now:    time.Now,
	}

	s.metaKeys = append(s.metaKeys, richMetaKeys...)
	for _, p := range richMetaKeyPatterns {
		s.metaKeyPatterns = append(s.metaKeyPatterns, wordpress.Pattern(p))
	}
	for _, key := range cfg.ExtraMetaKeys {
		if strings.Contains(key, "%") {
			s.metaKeyPatterns = append(s.metaKeyPatterns, wordpress.Pattern(key))
		} else if key != "" {
			s.metaKeys = append(s.metaKeys, key)
		}
	}

	for _, p := range append(append([]string(nil), optionNamePatterns...), cfg.ExtraOptionPatterns...) {
		if p != "" {
			s.optionPatterns = append(s.optionPatterns, wordpress.Pattern(p))
		}
	}
	return s
}

type step struct {
	reason Reason
	run    func(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error)
}

func (s *Scanner) steps() []step {
	return []step{
		{ReasonSiteIdentity, s.checkSiteIdentity},
		{ReasonPostMeta, s.checkPostMeta},
		{ReasonPostContent, s.checkPostContent},
		{ReasonTermMeta, s.checkTermMeta},
		{ReasonOptions, s.checkOptions},
		{ReasonSerialized, s.checkSerialized},
	}
}

// IsInUse reports whether att is referenced. Errors mean no verdict.
func (s *Scanner) IsInUse(ctx context.Context, att *wordpress.Attachment) (bool, error) {
	verdict, err := s.Check(ctx, att, Options{})
	if err != nil {
		return false, err
	}
	return verdict.Used, nil
}

// CheckID loads the attachment and checks it.
func (s *Scanner) CheckID(ctx context.Context, id uint64, opts Options) (Verdict, *wordpress.Attachment, error) {
	att, err := s.source.GetAttachment(ctx, id)
	if err != nil {
		return Verdict{}, nil, err
	}

	verdict, err := s.Check(ctx, att, opts)
	return verdict, att, err
}

// Check runs every usage check against att, stopping at the first match.
func (s *Scanner) Check(ctx context.Context, att *wordpress.Attachment, opts Options) (Verdict, error) {
	if att.URL == "" {
		return Verdict{}, ErrNoURL
	}

	if !opts.Fresh && s.cache != nil {
		cached, err := s.cache.Get(ctx, att.ID)
		if err != nil {
			s.logger.Warn("Failed to read cached verdict for %d: %v", att.ID, err)
		} else if cached != nil {
			cached.Cached = true
			return *cached, nil
		}
	}

	verdict := Verdict{AttachmentID: att.ID}
	candidates := BuildCandidates(*att, s.source.Uploads().BaseURL)

	for _, st := range s.steps() {
		if err := ctx.Err(); err != nil {
			return Verdict{}, err
		}

		detail, found, err := st.run(ctx, att, candidates)
		if err != nil {
			return Verdict{}, fmt.Errorf("%s check failed for attachment %d: %w", st.reason, att.ID, err)
		}
		if found {
			verdict.Used = true
			verdict.Reason = st.reason
			verdict.Detail = detail
			break
		}
	}

	verdict.FileMissing = s.fileMissing(ctx, att)
	verdict.CheckedAt = s.now().UTC()

	if verdict.Used {
		s.logger.Debug("Attachment %d is used (%s: %s)", att.ID, verdict.Reason, verdict.Detail)
	} else {
		s.logger.Debug("Attachment %d is unused", att.ID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, verdict); err != nil {
			s.logger.Warn("Failed to cache verdict for %d: %v", att.ID, err)
		}
	}
	return verdict, nil
}

// Invalidate drops cached verdicts.
func (s *Scanner) Invalidate(ctx context.Context, ids ...uint64) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		s.logger.Warn("Failed to invalidate cached verdicts: %v", err)
	}
}

func (s *Scanner) fileMissing(ctx context.Context, att *wordpress.Attachment) bool {
	if s.files == nil || att.RelativePath == "" {
		return false
	}

	exists, err := s.files.Exists(ctx, att.RelativePath)
	if err != nil {
		s.logger.Warn("Failed to check file of attachment %d: %v", att.ID, err)
		return false
	}
	return !exists
}

func (s *Scanner) checkSiteIdentity(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error) {
	for _, name := range identityOptions {
		value, ok, err := s.source.GetOption(ctx, name)
		if err != nil {
			return "", false, err
		}
		if ok && strings.TrimSpace(value) == c.IDString {
			return "option:" + name, true, nil
		}
	}

	theme, ok, err := s.source.GetOption(ctx, "stylesheet")
	if err != nil || !ok || theme == "" {
		return "", false, err
	}

	modsName := "theme_mods_" + theme
	raw, ok, err := s.source.GetOption(ctx, modsName)
	if err != nil || !ok {
		return "", false, err
	}

	mods, decoded := phpserial.Decode(raw)
	if !decoded {
		return "", false, nil
	}

	if logo, ok := mods.Get("custom_logo"); ok {
		if n, ok := logo.AsInt(); ok && n == c.ID {
			return modsName + ".custom_logo", true, nil
		}
	}

	for _, key := range []string{"header_image", "background_image"} {
		value, ok := mods.Get(key)
		if !ok || value.Kind != phpserial.KindString {
			continue
		}
		for _, file := range c.Files {
			if strings.Contains(value.Str, file) {
				return modsName + "." + key, true, nil
			}
		}
	}

	if data, ok := mods.Get("header_image_data"); ok {
		if id, ok := data.Get("attachment_id"); ok {
			if n, ok := id.AsInt(); ok && n == c.ID {
				return modsName + ".header_image_data", true, nil
			}
		}
	}
	return "", false, nil
}

func (s *Scanner) checkPostMeta(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error) {
	ref, err := s.source.MetaReferences(ctx, wordpress.MetaQuery{
		Keys:        s.metaKeys,
		KeyPatterns: s.metaKeyPatterns,
		ExcludeID:   att.ID,
		Equals:      []string{c.IDString},
		Members:     []string{c.IDString},
		Contains:    append(c.Patterns(), c.NumberPatterns()...),
	})
	return describe(ref, err)
}

func (s *Scanner) checkPostContent(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error) {
	ref, err := s.source.ContentReferences(ctx, c.Patterns())
	return describe(ref, err)
}

func (s *Scanner) checkTermMeta(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error) {
	ref, err := s.source.TermMetaReferences(ctx, wordpress.MetaQuery{
		Keys:    termIDMetaKeys,
		Equals:  []string{c.IDString},
		Members: []string{c.IDString},
	})
	if err != nil || ref != nil {
		return describe(ref, err)
	}

	ref, err = s.source.TermMetaReferences(ctx, wordpress.MetaQuery{
		Contains: c.Patterns(),
	})
	return describe(ref, err)
}

func (s *Scanner) checkOptions(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error) {
	ref, err := s.source.OptionReferences(ctx, wordpress.OptionQuery{
		Names:        identityOptions,
		NamePatterns: s.optionPatterns,
		Contains:     c.Patterns(),
	})
	return describe(ref, err)
}

func (s *Scanner) checkSerialized(ctx context.Context, att *wordpress.Attachment, c Candidates) (string, bool, error) {
	var detail string
	err := s.source.EachOption(ctx, wordpress.OptionQuery{
		NamePatterns: s.optionPatterns,
	}, func(opt wordpress.Option) error {
		if !looksEncoded(opt.OptionValue) {
			return nil
		}

		value, ok := phpserial.Decode(opt.OptionValue)
		if !ok {
			return nil
		}

		if match, found := SearchValue(value, c); found {
			detail = "option:" + opt.OptionName
			if match.Path != "" {
				detail += ":" + match.Path
			}
			return wordpress.StopIteration()
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return detail, detail != "", nil
}

func describe(ref *wordpress.Reference, err error) (string, bool, error) {
	if err != nil || ref == nil {
		return "", false, err
	}
	return fmt.Sprintf("%s:%s#%d", ref.Table, ref.Key, ref.ID), true, nil
}
